// Package looper runs periodic control loops on a fixed cycle.
package looper

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	viamutils "go.viam.com/utils"

	"go.viam.com/rdk/logging"
)

// DefaultPeriod matches the driver station packet rate.
const DefaultPeriod = 20 * time.Millisecond

// Loop is something run once per control cycle.
type Loop interface {
	OnStart()
	OnLoop()
	OnStop()
}

// Looper calls every registered Loop once per period.
type Looper struct {
	period time.Duration
	clock  clock.Clock
	logger logging.Logger

	mu      sync.Mutex
	loops   []Loop
	running bool
	cancel  func()

	activeBackgroundWorkers sync.WaitGroup
}

// New returns a stopped looper. A non-positive period uses DefaultPeriod.
func New(period time.Duration, logger logging.Logger) *Looper {
	return NewWithClock(period, clock.New(), logger)
}

// NewWithClock is New with an explicit clock.
func NewWithClock(period time.Duration, clk clock.Clock, logger logging.Logger) *Looper {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Looper{
		period: period,
		clock:  clk,
		logger: logger,
	}
}

// Register adds a loop. Loops registered while running are started on the
// next Start.
func (l *Looper) Register(loop Loop) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loops = append(l.loops, loop)
}

// Period returns the cycle length.
func (l *Looper) Period() time.Duration {
	return l.period
}

func (l *Looper) snapshot() []Loop {
	l.mu.Lock()
	defer l.mu.Unlock()
	loops := make([]Loop, len(l.loops))
	copy(loops, l.loops)
	return loops
}

// Start calls OnStart on every loop and begins cycling in the background.
// Starting a running looper does nothing.
func (l *Looper) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	cancelCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	for _, loop := range l.snapshot() {
		loop.OnStart()
	}

	l.logger.Debugw("looper starting", "period", l.period)
	ticker := l.clock.Ticker(l.period)
	l.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-cancelCtx.Done():
				return
			case <-ticker.C:
			}
			l.LoopOnce()
		}
	}, l.activeBackgroundWorkers.Done)
}

// LoopOnce runs a single cycle on the calling goroutine.
func (l *Looper) LoopOnce() {
	for _, loop := range l.snapshot() {
		loop.OnLoop()
	}
}

// Stop ends cycling, waits for the current cycle and calls OnStop on every
// loop.
func (l *Looper) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	l.activeBackgroundWorkers.Wait()
	for _, loop := range l.snapshot() {
		loop.OnStop()
	}
	l.logger.Debugw("looper stopped")
}
