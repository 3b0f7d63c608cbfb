// Package canmotor drives CAN motor controllers in percent output mode.
package canmotor

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-daq/canbus"
	"github.com/pkg/errors"

	"github.com/CardboardBread/AbsoluteLibrary/canio"
	"github.com/CardboardBread/AbsoluteLibrary/dashboard"

	"go.viam.com/rdk/logging"
)

// Arbitration IDs of the controller protocol; the device number fills the
// low six bits.
const (
	ControlFrameBase uint32 = 0x02040000
	StatusFrameBase  uint32 = 0x02041400

	MaxDeviceID = 0x3F
)

var (
	outputSignal      = canio.Signal{Scale: 1.0 / 1023, Start: 0, Length: 16, LittleEndian: true, Signed: true}
	enableSignal      = canio.Signal{Scale: 1, Start: 16, Length: 8, LittleEndian: true}
	busVoltageSignal  = canio.Signal{Scale: 0.05, Offset: 4, Start: 0, Length: 8, LittleEndian: true}
	currentSignal     = canio.Signal{Scale: 0.125, Start: 8, Length: 16, LittleEndian: true}
	temperatureSignal = canio.Signal{Scale: 1, Offset: -50, Start: 24, Length: 8, LittleEndian: true}
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

// Motor is one motor controller on the bus.
type Motor struct {
	name   string
	id     uint8
	pub    FramePublisher
	logger logging.Logger

	mu          sync.RWMutex
	output      float64
	inverted    bool
	voltage     float64
	current     float64
	temperature float64
}

// ControlID is the arbitration ID of the control frame for device id.
func ControlID(id uint8) uint32 {
	return ControlFrameBase | uint32(id)
}

// StatusID is the arbitration ID of the status frame for device id.
func StatusID(id uint8) uint32 {
	return StatusFrameBase | uint32(id)
}

// New registers a neutral control heartbeat for device id and subscribes to
// its status frames.
func New(name string, id uint8, pub FramePublisher, router FrameRouter, logger logging.Logger) (*Motor, error) {
	if id > MaxDeviceID {
		return nil, errors.Errorf("device id %d out of range [0, %d]", id, MaxDeviceID)
	}
	m := &Motor{name: name, id: id, pub: pub, logger: logger}

	frame, err := m.controlFrame(0, false)
	if err != nil {
		return nil, err
	}
	pub.RegisterPeriodic(frame)
	router.Handle(StatusID(id), m.handleStatus)
	return m, nil
}

// Name is the motor's dashboard name.
func (m *Motor) Name() string {
	return m.name
}

func (m *Motor) controlFrame(output float64, enabled bool) (canbus.Frame, error) {
	frame := canio.NewExtendedFrame(ControlID(m.id))
	if err := outputSignal.Insert(frame.Data, output); err != nil {
		return frame, err
	}
	var enable float64
	if enabled {
		enable = 1
	}
	if err := enableSignal.Insert(frame.Data, enable); err != nil {
		return frame, err
	}
	return frame, nil
}

func (m *Motor) send(output float64, enabled bool) {
	frame, err := m.controlFrame(output, enabled)
	if err == nil {
		err = m.pub.Publish(frame)
	}
	if err != nil {
		m.logger.Errorw("motor command send error", "motor", m.name, "error", err)
	}
}

// Set commands a fractional output in [-1, 1].
func (m *Motor) Set(output float64) {
	output = math.Max(-1, math.Min(1, output))

	m.mu.Lock()
	m.output = output
	if m.inverted {
		output = -output
	}
	m.mu.Unlock()

	m.send(output, true)
}

// Get returns the last commanded output, before inversion.
func (m *Motor) Get() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.output
}

// SetInverted flips the sign of every later command.
func (m *Motor) SetInverted(inverted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inverted = inverted
}

// Inverted reports whether commands are negated.
func (m *Motor) Inverted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inverted
}

// StopMotor sends a disabled neutral command.
func (m *Motor) StopMotor() {
	m.mu.Lock()
	m.output = 0
	m.mu.Unlock()

	m.send(0, false)
}

func (m *Motor) handleStatus(frame canbus.Frame) {
	voltage, err := busVoltageSignal.Extract(frame.Data)
	if err != nil {
		m.logger.Debugw("bad status frame", "motor", m.name, "error", err)
		return
	}
	current, err := currentSignal.Extract(frame.Data)
	if err != nil {
		m.logger.Debugw("bad status frame", "motor", m.name, "error", err)
		return
	}
	temperature, err := temperatureSignal.Extract(frame.Data)
	if err != nil {
		m.logger.Debugw("bad status frame", "motor", m.name, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.voltage = voltage
	m.current = current
	m.temperature = temperature
}

// Voltage is the last reported bus voltage.
func (m *Motor) Voltage() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.voltage
}

// Current is the last reported output current in amps.
func (m *Motor) Current() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Temperature is the last reported controller temperature in celsius.
func (m *Motor) Temperature() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.temperature
}

// Log writes the motor's state to d.
func (m *Motor) Log(d dashboard.Dashboard) {
	d.PutNumber(fmt.Sprintf("%s Output", m.name), m.Get())
	d.PutNumber(fmt.Sprintf("%s Voltage", m.name), m.Voltage())
	d.PutNumber(fmt.Sprintf("%s Current", m.name), m.Current())
	d.PutNumber(fmt.Sprintf("%s Temperature", m.name), m.Temperature())
}
