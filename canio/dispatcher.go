package canio

import (
	"context"
	"sync"
	"time"

	"github.com/go-daq/canbus"
	viamutils "go.viam.com/utils"

	"go.viam.com/rdk/logging"
)

// RxErrorBackoff is how long Run waits after a failed receive before trying
// again.
const RxErrorBackoff = 100 * time.Millisecond

// Handler consumes a received frame.
type Handler func(frame canbus.Frame)

// Dispatcher routes received frames to the handlers registered for their ID.
type Dispatcher struct {
	logger  logging.Logger
	backoff time.Duration

	mu       sync.RWMutex
	handlers map[uint32][]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(logger logging.Logger) *Dispatcher {
	return &Dispatcher{logger: logger, backoff: RxErrorBackoff, handlers: map[uint32][]Handler{}}
}

// Handle registers h for frames with the given ID.
func (d *Dispatcher) Handle(id uint32, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[id] = append(d.handlers[id], h)
}

// IDs lists every ID with a handler, for building receive filters.
func (d *Dispatcher) IDs() []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]uint32, 0, len(d.handlers))
	for id := range d.handlers {
		ids = append(ids, id)
	}
	return ids
}

// Dispatch hands frame to its handlers and reports whether any ran.
func (d *Dispatcher) Dispatch(frame canbus.Frame) bool {
	d.mu.RLock()
	handlers := d.handlers[frame.ID]
	d.mu.RUnlock()

	for _, h := range handlers {
		h(frame)
	}
	return len(handlers) > 0
}

// Run receives frames until ctx is done. Closing the underlying socket
// unblocks a pending receive. After a receive error Run waits out the
// backoff, and only the first error of a run of failures is logged as an
// error.
func (d *Dispatcher) Run(ctx context.Context, receiver Receiver) {
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := receiver.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures == 1 {
				d.logger.Errorw("CAN Rx error", "error", err)
			} else {
				d.logger.Debugw("CAN Rx error", "error", err, "failures", failures)
			}
			if !viamutils.SelectContextOrWait(ctx, d.backoff) {
				return
			}
			continue
		}
		if failures > 0 {
			d.logger.Infow("CAN Rx recovered", "failures", failures)
			failures = 0
		}
		d.Dispatch(frame)
	}
}
