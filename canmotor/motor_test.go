package canmotor

import (
	"testing"

	"github.com/go-daq/canbus"
	"go.viam.com/test"

	"github.com/CardboardBread/AbsoluteLibrary/canio"
	"github.com/CardboardBread/AbsoluteLibrary/dashboard"
	"github.com/CardboardBread/AbsoluteLibrary/drive"
	"github.com/CardboardBread/AbsoluteLibrary/subsystem"

	"go.viam.com/rdk/logging"
)

var (
	_ drive.Motor        = (*Motor)(nil)
	_ subsystem.Powered  = (*Motor)(nil)
	_ dashboard.Loggable = (*Motor)(nil)
)

type nopSender struct{}

func (nopSender) Send(frame canbus.Frame) (int, error) { return len(frame.Data), nil }

func latestCommand(t *testing.T, pub *canio.Publisher, id uint8) (output, enable float64) {
	t.Helper()
	frame, ok := pub.Latest(ControlID(id))
	test.That(t, ok, test.ShouldBeTrue)
	output, err := outputSignal.Extract(frame.Data)
	test.That(t, err, test.ShouldBeNil)
	enable, err = enableSignal.Extract(frame.Data)
	test.That(t, err, test.ShouldBeNil)
	return output, enable
}

func TestMotor(t *testing.T) {
	logger := logging.NewTestLogger(t)
	pub := canio.NewPublisher(nopSender{}, 0, nil, logger)
	router := canio.NewDispatcher(logger)

	m, err := New("Front Left", 3, pub, router, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "Front Left")
	test.That(t, router.IDs(), test.ShouldResemble, []uint32{StatusID(3)})

	output, enable := latestCommand(t, pub, 3)
	test.That(t, output, test.ShouldEqual, 0.0)
	test.That(t, enable, test.ShouldEqual, 0.0)

	t.Run("set", func(t *testing.T) {
		m.Set(0.5)
		test.That(t, m.Get(), test.ShouldEqual, 0.5)
		output, enable := latestCommand(t, pub, 3)
		test.That(t, output, test.ShouldAlmostEqual, 0.5, 0.001)
		test.That(t, enable, test.ShouldEqual, 1.0)

		m.Set(-3)
		test.That(t, m.Get(), test.ShouldEqual, -1.0)
		output, _ = latestCommand(t, pub, 3)
		test.That(t, output, test.ShouldAlmostEqual, -1.0)
	})

	t.Run("inverted", func(t *testing.T) {
		m.SetInverted(true)
		test.That(t, m.Inverted(), test.ShouldBeTrue)
		m.Set(0.25)
		test.That(t, m.Get(), test.ShouldEqual, 0.25)
		output, _ := latestCommand(t, pub, 3)
		test.That(t, output, test.ShouldAlmostEqual, -0.25, 0.001)
		m.SetInverted(false)
	})

	t.Run("stop", func(t *testing.T) {
		m.Set(1)
		m.StopMotor()
		test.That(t, m.Get(), test.ShouldEqual, 0.0)
		output, enable := latestCommand(t, pub, 3)
		test.That(t, output, test.ShouldEqual, 0.0)
		test.That(t, enable, test.ShouldEqual, 0.0)
	})

	t.Run("status", func(t *testing.T) {
		// 12 V, 10 A, 40 C
		frame := canbus.Frame{ID: StatusID(3), Data: []byte{160, 80, 0, 90, 0, 0, 0, 0}, Kind: canbus.EFF}
		test.That(t, router.Dispatch(frame), test.ShouldBeTrue)
		test.That(t, m.Voltage(), test.ShouldAlmostEqual, 12.0)
		test.That(t, m.Current(), test.ShouldAlmostEqual, 10.0)
		test.That(t, m.Temperature(), test.ShouldAlmostEqual, 40.0)
		test.That(t, subsystem.Wattage(m), test.ShouldAlmostEqual, 120.0)

		router.Dispatch(canbus.Frame{ID: StatusID(3), Data: []byte{1}})
		test.That(t, m.Voltage(), test.ShouldAlmostEqual, 12.0)
	})

	t.Run("log", func(t *testing.T) {
		table := dashboard.NewTable()
		m.Log(table)
		snap := table.Snapshot()
		test.That(t, snap["Front Left Output"], test.ShouldEqual, 0.0)
		test.That(t, snap["Front Left Voltage"], test.ShouldAlmostEqual, 12.0)
		test.That(t, len(snap), test.ShouldEqual, 4)
	})
}

func TestNewRejectsBadID(t *testing.T) {
	logger := logging.NewTestLogger(t)
	pub := canio.NewPublisher(nopSender{}, 0, nil, logger)
	_, err := New("bad", MaxDeviceID+1, pub, canio.NewDispatcher(logger), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
