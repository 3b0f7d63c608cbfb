package pneumatics

import (
	"sync"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"

	"github.com/CardboardBread/AbsoluteLibrary/canio"
	"github.com/CardboardBread/AbsoluteLibrary/subsystem"

	"go.viam.com/rdk/logging"
)

// Arbitration IDs of the pneumatics control module; the module number fills
// the low six bits.
const (
	ControlFrameBase     uint32 = 0x09041C00
	StatusFrameBase      uint32 = 0x09041400
	ClearFaultsFrameBase uint32 = 0x09041C40

	MaxModuleID = 0x3F
)

// Fault names, in report order.
const (
	FaultCurrentTooHigh = "current too high"
	FaultNotConnected   = "not connected"
	FaultShorted        = "shorted"
)

var (
	closedLoopSignal = canio.Signal{Scale: 1, Start: 1, Length: 1, LittleEndian: true}

	pressureSwitchSignal = canio.Signal{Scale: 1, Start: 0, Length: 1, LittleEndian: true}
	compressorOnSignal   = canio.Signal{Scale: 1, Start: 1, Length: 1, LittleEndian: true}
	currentSignal        = canio.Signal{Scale: 0.03125, Start: 8, Length: 10, LittleEndian: true}

	faultSignals = []canio.Signal{
		{Scale: 1, Start: 24, Length: 1, LittleEndian: true},
		{Scale: 1, Start: 25, Length: 1, LittleEndian: true},
		{Scale: 1, Start: 26, Length: 1, LittleEndian: true},
	}
	stickyFaultSignals = []canio.Signal{
		{Scale: 1, Start: 28, Length: 1, LittleEndian: true},
		{Scale: 1, Start: 29, Length: 1, LittleEndian: true},
		{Scale: 1, Start: 30, Length: 1, LittleEndian: true},
	}
	faultNames = []string{FaultCurrentTooHigh, FaultNotConnected, FaultShorted}
)

// FramePublisher sends control frames. *canio.Publisher satisfies it.
type FramePublisher interface {
	RegisterPeriodic(frame canbus.Frame)
	Publish(frame canbus.Frame) error
}

// FrameRouter delivers status frames. *canio.Dispatcher satisfies it.
type FrameRouter interface {
	Handle(id uint32, h canio.Handler)
}

// CANCompressor is the compressor on a CAN pneumatics control module. The
// module runs the compressor from its pressure switch while closed loop
// control is on.
type CANCompressor struct {
	id     uint8
	pub    FramePublisher
	logger logging.Logger

	mu             sync.RWMutex
	pressureSwitch bool
	running        bool
	current        float64
	faults         [3]bool
	stickyFaults   [3]bool
}

// NewCANCompressor registers the module heartbeat with closed loop control
// off and subscribes to its status frames.
func NewCANCompressor(id uint8, pub FramePublisher, router FrameRouter, logger logging.Logger) (*CANCompressor, error) {
	if id > MaxModuleID {
		return nil, errors.Errorf("module id %d out of range [0, %d]", id, MaxModuleID)
	}
	c := &CANCompressor{id: id, pub: pub, logger: logger}
	frame, err := c.controlFrame(false)
	if err != nil {
		return nil, err
	}
	pub.RegisterPeriodic(frame)
	router.Handle(StatusFrameBase|uint32(id), c.handleStatus)
	return c, nil
}

func (c *CANCompressor) controlFrame(closedLoop bool) (canbus.Frame, error) {
	frame := canio.NewExtendedFrame(ControlFrameBase | uint32(c.id))
	var v float64
	if closedLoop {
		v = 1
	}
	return frame, closedLoopSignal.Insert(frame.Data, v)
}

func (c *CANCompressor) setClosedLoop(on bool) error {
	frame, err := c.controlFrame(on)
	if err != nil {
		return err
	}
	return c.pub.Publish(frame)
}

// Start turns closed loop control on.
func (c *CANCompressor) Start() error {
	return c.setClosedLoop(true)
}

// Stop turns closed loop control off.
func (c *CANCompressor) Stop() error {
	return c.setClosedLoop(false)
}

// Running reports whether the module says the compressor is on.
func (c *CANCompressor) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// PressureSwitch is true once the system is at pressure.
func (c *CANCompressor) PressureSwitch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pressureSwitch
}

// CompressorCurrent is the compressor draw in amps.
func (c *CANCompressor) CompressorCurrent() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func named(flags [3]bool) []subsystem.Fault {
	faults := make([]subsystem.Fault, len(flags))
	for i, active := range flags {
		faults[i] = subsystem.Fault{Name: faultNames[i], Active: active}
	}
	return faults
}

// Faults returns the live faults.
func (c *CANCompressor) Faults() []subsystem.Fault {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return named(c.faults)
}

// StickyFaults returns the latched faults.
func (c *CANCompressor) StickyFaults() []subsystem.Fault {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return named(c.stickyFaults)
}

// ClearStickyFaults asks the module to clear every latched fault.
func (c *CANCompressor) ClearStickyFaults() error {
	frame := canio.NewExtendedFrame(ClearFaultsFrameBase | uint32(c.id))
	frame.Data[0] = 1
	if err := c.pub.Publish(frame); err != nil {
		return errors.Wrap(err, "cannot clear sticky faults")
	}
	return nil
}

func flag(s canio.Signal, data []byte) (bool, error) {
	v, err := s.Extract(data)
	return v != 0, err
}

type status struct {
	pressure, running bool
	current           float64
	faults, sticky    [3]bool
}

func decodeStatus(data []byte) (status, error) {
	var (
		s   status
		err error
	)
	if s.pressure, err = flag(pressureSwitchSignal, data); err != nil {
		return s, err
	}
	if s.running, err = flag(compressorOnSignal, data); err != nil {
		return s, err
	}
	if s.current, err = currentSignal.Extract(data); err != nil {
		return s, err
	}
	for i := range faultSignals {
		if s.faults[i], err = flag(faultSignals[i], data); err != nil {
			return s, err
		}
		if s.sticky[i], err = flag(stickyFaultSignals[i], data); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (c *CANCompressor) handleStatus(frame canbus.Frame) {
	s, err := decodeStatus(frame.Data)
	if err != nil {
		c.logger.Debugw("bad pneumatics status frame", "module", c.id, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pressureSwitch = s.pressure
	c.running = s.running
	c.current = s.current
	c.faults = s.faults
	c.stickyFaults = s.sticky
}
