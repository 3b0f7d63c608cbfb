// Package safety implements the motor safety watchdog: an actuator that is
// not fed within its expiration window gets stopped.
package safety

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rdk/logging"
)

// DefaultExpiration is the feed window used when none is configured.
const DefaultExpiration = 100 * time.Millisecond

// Stopper is an actuator the watchdog can halt.
type Stopper interface {
	StopMotor()
	Description() string
}

// Helper tracks when its Stopper was last fed.
type Helper struct {
	mu         sync.Mutex
	stopper    Stopper
	clock      clock.Clock
	logger     logging.Logger
	expiration time.Duration
	enabled    bool
	stopTime   time.Time
	// stopped is set once the watchdog has halted the actuator and cleared
	// by the next Feed.
	stopped  bool
	timeouts int
}

// Option configures a Helper.
type Option func(*Helper)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(h *Helper) {
		h.clock = c
	}
}

// NewHelper returns a disabled helper with the default expiration.
func NewHelper(stopper Stopper, logger logging.Logger, opts ...Option) *Helper {
	h := &Helper{
		stopper:    stopper,
		clock:      clock.New(),
		logger:     logger,
		expiration: DefaultExpiration,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.stopTime = h.clock.Now()
	h.stopped = true
	return h
}

// Feed restarts the expiration window.
func (h *Helper) Feed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopTime = h.clock.Now().Add(h.expiration)
	h.stopped = false
}

// SetExpiration sets the feed window. It applies from the next Feed.
func (h *Helper) SetExpiration(expiration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expiration = expiration
}

// Expiration returns the feed window.
func (h *Helper) Expiration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiration
}

// IsAlive reports whether the window has not yet run out. A disabled helper
// is always alive.
func (h *Helper) IsAlive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.enabled || !h.clock.Now().After(h.stopTime)
}

// SetSafetyEnabled turns expiry checking on or off.
func (h *Helper) SetSafetyEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = enabled
}

// IsSafetyEnabled reports whether expiry checking is on.
func (h *Helper) IsSafetyEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Timeouts counts how often output stopped arriving in time. An actuator
// that was never driven, or that the watchdog already stopped, does not
// count again.
func (h *Helper) Timeouts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timeouts
}

// Check stops the actuator if it is enabled and has not been fed in time.
// Only the first expiry after real output is logged.
func (h *Helper) Check() {
	h.mu.Lock()
	expired := h.enabled && h.clock.Now().After(h.stopTime)
	timedOut := expired && !h.stopped
	if timedOut {
		h.timeouts++
	}
	h.mu.Unlock()
	if !expired {
		return
	}
	if timedOut {
		h.logger.Errorw("motor safety timeout, output not updated often enough", "device", h.stopper.Description())
	}
	// StopMotor feeds again, so the lock must not be held here
	h.stopper.StopMotor()

	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
}

// OnStart is part of looper.Loop.
func (h *Helper) OnStart() {}

// OnLoop checks the watchdog once per control cycle.
func (h *Helper) OnLoop() {
	h.Check()
}

// OnStop is part of looper.Loop.
func (h *Helper) OnStop() {}
