// Sim - reference simulator endpoint for the joint-position channel
//
// Accepts follower connections, ingests command frames into a
// per-session joint vector, and publishes state at a fixed rate.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-so101/internal/config"
	"github.com/teslashibe/go-so101/internal/log"
	"github.com/teslashibe/go-so101/pkg/sim"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	fmt.Println("🦾 SO-101 WebSim Endpoint")
	fmt.Println("=========================")
	fmt.Printf("Joints: %v\n", cfg.JointNames)
	fmt.Printf("Publish rate: %d Hz\n\n", cfg.PublishHz)

	server := sim.New(cfg.Schema(), cfg.PublishHz)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	server.RegisterRoutes(app)
	server.RegisterAPIRoutes(app.Group("/api"))

	fmt.Printf("WebSocket endpoint on ws://%s (Ctrl+C to stop)\n", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
