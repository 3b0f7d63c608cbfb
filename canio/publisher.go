package canio

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-daq/canbus"

	"go.viam.com/rdk/logging"
)

// DefaultPublishPeriod is how often periodic frames are resent.
const DefaultPublishPeriod = 10 * time.Millisecond

// Publisher keeps the latest frame for every periodic ID and resends all of
// them each period so that controllers keep seeing a heartbeat. Frames with
// other IDs go out once, immediately.
type Publisher struct {
	sender Sender
	period time.Duration
	clock  clock.Clock
	logger logging.Logger

	mu       sync.Mutex
	ids      []uint32
	periodic map[uint32]canbus.Frame
}

// NewPublisher returns a publisher writing to sender. A non-positive period
// selects DefaultPublishPeriod and a nil clock the wall clock.
func NewPublisher(sender Sender, period time.Duration, clk clock.Clock, logger logging.Logger) *Publisher {
	if period <= 0 {
		period = DefaultPublishPeriod
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Publisher{
		sender:   sender,
		period:   period,
		clock:    clk,
		logger:   logger,
		periodic: map[uint32]canbus.Frame{},
	}
}

// RegisterPeriodic marks frame.ID as periodic with frame as its first value.
func (p *Publisher) RegisterPeriodic(frame canbus.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.periodic[frame.ID]; !ok {
		p.ids = append(p.ids, frame.ID)
	}
	p.periodic[frame.ID] = copyFrame(frame)
}

// Publish replaces the periodic frame sharing frame's ID, or sends frame
// right away if the ID is not periodic.
func (p *Publisher) Publish(frame canbus.Frame) error {
	p.mu.Lock()
	if _, ok := p.periodic[frame.ID]; ok {
		p.periodic[frame.ID] = copyFrame(frame)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	_, err := p.sender.Send(frame)
	return err
}

// Latest returns the current frame for a periodic ID.
func (p *Publisher) Latest(id uint32) (canbus.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	frame, ok := p.periodic[id]
	if !ok {
		return canbus.Frame{}, false
	}
	return copyFrame(frame), true
}

// Flush sends every periodic frame once.
func (p *Publisher) Flush() {
	p.mu.Lock()
	frames := make([]canbus.Frame, 0, len(p.ids))
	for _, id := range p.ids {
		frames = append(frames, p.periodic[id])
	}
	p.mu.Unlock()

	for _, frame := range frames {
		if _, err := p.sender.Send(frame); err != nil {
			p.logger.Errorw("periodic frame send error", "id", frame.ID, "error", err)
		}
	}
}

// Run flushes every period until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	ticker := p.clock.Ticker(p.period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p.Flush()
	}
}

func copyFrame(frame canbus.Frame) canbus.Frame {
	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	frame.Data = data
	return frame
}
