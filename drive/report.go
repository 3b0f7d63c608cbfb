package drive

import (
	"go.uber.org/atomic"

	"go.viam.com/rdk/logging"
)

// Usage identifies a family of drive calls for usage reporting.
type Usage int

// Drive call families, each reported at most once per process.
const (
	UsageTank Usage = iota
	UsageArcadeStandard
	UsageMecanumCartesian
	UsageMecanumPolar
	numUsages
)

func (u Usage) String() string {
	switch u {
	case UsageTank:
		return "tank"
	case UsageArcadeStandard:
		return "arcade_standard"
	case UsageMecanumCartesian:
		return "mecanum_cartesian"
	case UsageMecanumPolar:
		return "mecanum_polar"
	default:
		return "unknown"
	}
}

// Reporter receives a usage report the first time a drive family is used in
// this process. motors is 2 or 4.
type Reporter interface {
	ReportUsage(usage Usage, motors int)
}

// LogReporter reports usage to a logger.
type LogReporter struct {
	Logger logging.Logger
}

// ReportUsage implements Reporter.
func (r LogReporter) ReportUsage(usage Usage, motors int) {
	r.Logger.Infow("robot drive in use", "usage", usage.String(), "motors", motors)
}

// All false at process start; never reset outside of tests.
var reported [numUsages]atomic.Bool

// reportOnce sends the report for usage if no drive in this process has
// reported it before.
func reportOnce(r Reporter, usage Usage, motors int) {
	if !reported[usage].CompareAndSwap(false, true) {
		return
	}
	if r != nil {
		r.ReportUsage(usage, motors)
	}
}

func resetReported() {
	for i := range reported {
		reported[i].Store(false)
	}
}
