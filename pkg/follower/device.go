package follower

import "github.com/teslashibe/go-so101/internal/log"

// Kind tags the controlled endpoint variant. It selects calibration
// behavior at construction time; there is no runtime switching.
type Kind string

const (
	// KindSim is a simulated endpoint: calibration is meaningless and
	// all hooks are no-ops that report success.
	KindSim Kind = "sim"
	// KindPhysical is a physical device behind the channel. The hooks
	// are still no-ops for the wire protocol itself, but they log so
	// an operator can see the lifecycle happening.
	KindPhysical Kind = "physical"
)

// Calibrator is the device capability surface the generic robot
// lifecycle calls into. Implementations must be cheap and must not
// touch the wire.
type Calibrator interface {
	Calibrated() bool
	Calibrate() error
	Configure() error
}

// nopCalibrator is the simulated-endpoint implementation: always
// calibrated, nothing to configure.
type nopCalibrator struct{}

func (nopCalibrator) Calibrated() bool { return true }
func (nopCalibrator) Calibrate() error { return nil }
func (nopCalibrator) Configure() error { return nil }

// physicalCalibrator logs the lifecycle calls. A real device backend
// would replace this with motor-bus calibration.
type physicalCalibrator struct{}

func (physicalCalibrator) Calibrated() bool { return true }

func (physicalCalibrator) Calibrate() error {
	log.Info("calibrate requested; channel protocol carries no calibration, nothing to do")
	return nil
}

func (physicalCalibrator) Configure() error {
	log.Info("configure requested; channel protocol carries no configuration, nothing to do")
	return nil
}

// calibratorFor selects the Calibrator implementation for a Kind.
func calibratorFor(kind Kind) Calibrator {
	if kind == KindPhysical {
		return physicalCalibrator{}
	}
	return nopCalibrator{}
}

var (
	_ Calibrator = nopCalibrator{}
	_ Calibrator = physicalCalibrator{}
)
