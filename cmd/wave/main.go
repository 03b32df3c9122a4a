// Wave - teleop demo client for the joint-position channel
//
// Connects the bridge to a running endpoint (cmd/sim or a robot) and
// streams a slow sine wave across all joints at 60 Hz, printing the
// observed state once a second. Exercises the full outbound and
// inbound path end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-so101/internal/config"
	"github.com/teslashibe/go-so101/internal/log"
	"github.com/teslashibe/go-so101/pkg/follower"
)

const tickRate = 60 // Hz

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	amplitude := flag.Float64("amplitude", 0.5, "wave amplitude (position units)")
	period := flag.Float64("period", 4.0, "wave period in seconds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	fmt.Println("🌊 SO-101 Wave Demo")
	fmt.Println("===================")
	fmt.Printf("Endpoint: %s\n\n", cfg.WSURL)

	bridge := follower.New(follower.Config{
		URL:    cfg.WSURL,
		Schema: cfg.Schema(),
		Limits: cfg.Limits(),
		Kind:   follower.KindSim,
	})

	fmt.Print("Connecting... ")
	if err := bridge.Connect(context.Background()); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("\nStreaming (Ctrl+C to stop)")

	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	start := time.Now()
	lastPrint := start

	for {
		select {
		case <-sigChan:
			fmt.Println("\n\n👋 Stopping, returning to zero...")
			zero := map[string]float64{}
			for _, name := range cfg.JointNames {
				zero[name] = 0
			}
			bridge.Act(zero)
			time.Sleep(100 * time.Millisecond)
			if err := bridge.Disconnect(); err != nil {
				fmt.Fprintf(os.Stderr, "disconnect: %v\n", err)
			}
			return

		case <-ticker.C:
			t := time.Since(start).Seconds()
			phase := 2 * math.Pi * t / *period

			target := make(map[string]float64, len(cfg.JointNames))
			for i, name := range cfg.JointNames {
				// Phase-offset each joint so the arm ripples.
				target[name] = *amplitude * math.Sin(phase+float64(i)*math.Pi/6)
			}
			bridge.Act(target)

			obs := bridge.Observe()
			if time.Since(lastPrint) >= time.Second {
				fmt.Printf("seq=%-6d obs: ", bridge.Seq())
				for _, p := range obs.Pos {
					fmt.Printf("%+.3f ", p)
				}
				fmt.Println()
				lastPrint = time.Now()
			}
		}
	}
}
