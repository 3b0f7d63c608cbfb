// Package pneumatics controls the compressor loop. Solenoids belong to the
// subsystems that fire them.
package pneumatics

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/CardboardBread/AbsoluteLibrary/dashboard"
	"github.com/CardboardBread/AbsoluteLibrary/subsystem"

	"go.viam.com/rdk/logging"
)

// DefaultName is used when no name is given.
const DefaultName = "Pneumatics"

// SupplyVoltage is the compressor supply voltage.
const SupplyVoltage = 12

// SolenoidSupplyVoltages are the solenoid rails a control module can supply.
var SolenoidSupplyVoltages = [...]int{12, 24}

// ErrNoCompressor is returned when the subsystem has no compressor to drive.
var ErrNoCompressor = errors.New("compressor does not exist")

// Compressor is a compressor with a pressure switch on a control module.
type Compressor interface {
	Start() error
	Stop() error
	PressureSwitch() bool
	CompressorCurrent() float64
	subsystem.Faulting
}

// Pneumatics runs the compressor.
type Pneumatics struct {
	name       string
	compressor Compressor
	logger     logging.Logger

	mu      sync.Mutex
	enabled bool
}

// New returns a subsystem driving compressor. An empty name selects
// DefaultName.
func New(name string, compressor Compressor, logger logging.Logger) *Pneumatics {
	if name == "" {
		name = DefaultName
	}
	return &Pneumatics{name: name, compressor: compressor, logger: logger}
}

// Name returns the subsystem name.
func (p *Pneumatics) Name() string {
	return p.name
}

// Enable starts the compressor.
func (p *Pneumatics) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.compressor == nil {
		p.logger.Errorw("cannot start compressor, does not exist", "subsystem", p.name)
		return ErrNoCompressor
	}
	if err := p.compressor.Start(); err != nil {
		return errors.Wrap(err, "cannot start compressor")
	}
	p.enabled = true
	return nil
}

// Disable stops the compressor.
func (p *Pneumatics) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.compressor == nil {
		p.logger.Errorw("cannot stop compressor, does not exist", "subsystem", p.name)
		return ErrNoCompressor
	}
	if err := p.compressor.Stop(); err != nil {
		return errors.Wrap(err, "cannot stop compressor")
	}
	p.enabled = false
	return nil
}

// Toggle disables a running compressor and enables a stopped one.
func (p *Pneumatics) Toggle() error {
	if p.Enabled() {
		return p.Disable()
	}
	return p.Enable()
}

// Enabled reports whether the compressor was last enabled.
func (p *Pneumatics) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Pressurized reports the pressure switch.
func (p *Pneumatics) Pressurized() bool {
	if p.compressor == nil {
		return false
	}
	return p.compressor.PressureSwitch()
}

// Voltage is the compressor supply voltage.
func (p *Pneumatics) Voltage() float64 {
	return SupplyVoltage
}

// Current is the compressor draw in amps.
func (p *Pneumatics) Current() float64 {
	if p.compressor == nil {
		return 0
	}
	return p.compressor.CompressorCurrent()
}

// Temperature is not measured and always -1.
func (p *Pneumatics) Temperature() float64 {
	return -1
}

// Log writes the compressor state to d.
func (p *Pneumatics) Log(d dashboard.Dashboard) {
	d.PutNumber("Compressor Current", p.Current())
	d.PutBoolean("Pneumatics Pressurized", p.Pressurized())
}

// Faults returns the live compressor faults.
func (p *Pneumatics) Faults() []subsystem.Fault {
	if p.compressor == nil {
		return nil
	}
	return p.compressor.Faults()
}

// StickyFaults returns the latched compressor faults.
func (p *Pneumatics) StickyFaults() []subsystem.Fault {
	if p.compressor == nil {
		return nil
	}
	return p.compressor.StickyFaults()
}

// ClearStickyFaults clears every latched fault on the control module.
func (p *Pneumatics) ClearStickyFaults() error {
	if p.compressor == nil {
		return ErrNoCompressor
	}
	return p.compressor.ClearStickyFaults()
}
