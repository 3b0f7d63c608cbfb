package safety

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/rdk/logging"
)

type countingStopper struct {
	helper *Helper
	stops  int
}

func (s *countingStopper) StopMotor() {
	s.stops++
	if s.helper != nil {
		s.helper.Feed()
	}
}

func (s *countingStopper) Description() string {
	return "counting stopper"
}

func TestHelper(t *testing.T) {
	logger := logging.NewTestLogger(t)
	mockClock := clock.NewMock()
	stopper := &countingStopper{}
	h := NewHelper(stopper, logger, WithClock(mockClock))
	stopper.helper = h

	test.That(t, h.Expiration(), test.ShouldEqual, DefaultExpiration)
	test.That(t, h.IsSafetyEnabled(), test.ShouldBeFalse)

	t.Run("disabled never stops", func(t *testing.T) {
		mockClock.Add(time.Second)
		test.That(t, h.IsAlive(), test.ShouldBeTrue)
		h.Check()
		test.That(t, stopper.stops, test.ShouldEqual, 0)
	})

	h.SetSafetyEnabled(true)
	h.SetExpiration(200 * time.Millisecond)

	t.Run("fed within window", func(t *testing.T) {
		h.Feed()
		mockClock.Add(200 * time.Millisecond)
		test.That(t, h.IsAlive(), test.ShouldBeTrue)
		h.Check()
		test.That(t, stopper.stops, test.ShouldEqual, 0)
	})

	t.Run("expired is stopped once", func(t *testing.T) {
		mockClock.Add(time.Millisecond)
		test.That(t, h.IsAlive(), test.ShouldBeFalse)
		h.Check()
		test.That(t, stopper.stops, test.ShouldEqual, 1)
		test.That(t, h.Timeouts(), test.ShouldEqual, 1)
		h.Check()
		test.That(t, stopper.stops, test.ShouldEqual, 1)
	})

	t.Run("runs as a loop", func(t *testing.T) {
		h.OnStart()
		mockClock.Add(time.Second)
		h.OnLoop()
		test.That(t, stopper.stops, test.ShouldEqual, 2)
		h.OnStop()
	})

	t.Run("stopped actuator is not a new timeout", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			mockClock.Add(time.Second)
			h.Check()
		}
		test.That(t, stopper.stops, test.ShouldEqual, 7)
		test.That(t, h.Timeouts(), test.ShouldEqual, 1)

		h.Feed()
		mockClock.Add(time.Second)
		h.Check()
		test.That(t, h.Timeouts(), test.ShouldEqual, 2)
	})
}

func TestHelperIdleFromStart(t *testing.T) {
	mockClock := clock.NewMock()
	stopper := &countingStopper{}
	h := NewHelper(stopper, logging.NewTestLogger(t), WithClock(mockClock))
	stopper.helper = h
	h.SetSafetyEnabled(true)

	mockClock.Add(time.Second)
	test.That(t, h.IsAlive(), test.ShouldBeFalse)
	h.Check()
	test.That(t, stopper.stops, test.ShouldEqual, 1)
	test.That(t, h.Timeouts(), test.ShouldEqual, 0)
}
