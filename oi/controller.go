package oi

import (
	"context"
	"sync"

	"go.viam.com/rdk/components/input"
)

// AxisOrder lists the absolute controls in axis order. The order lines a
// gamepad up with the Standard axis constants.
var AxisOrder = []input.Control{
	input.AbsoluteX,
	input.AbsoluteY,
	input.AbsoluteZ,
	input.AbsoluteRZ,
	input.AbsoluteRX,
	input.AbsoluteRY,
}

// ControlLister reports the controls a controller has.
type ControlLister interface {
	Controls(ctx context.Context, extra map[string]interface{}) ([]input.Control, error)
}

// EventSource reports the latest event per control. input.Controller
// satisfies it.
type EventSource interface {
	Events(ctx context.Context, extra map[string]interface{}) (map[input.Control]input.Event, error)
}

// AxisControls returns the absolute axes of a controller in AxisOrder.
func AxisControls(ctx context.Context, lister ControlLister) ([]input.Control, error) {
	controls, err := lister.Controls(ctx, nil)
	if err != nil {
		return nil, err
	}
	have := make(map[input.Control]bool, len(controls))
	for _, c := range controls {
		have[c] = true
	}
	var axes []input.Control
	for _, c := range AxisOrder {
		if have[c] {
			axes = append(axes, c)
		}
	}
	return axes, nil
}

// ControllerAxes caches axis values from an input controller between
// refreshes.
type ControllerAxes struct {
	src      EventSource
	controls []input.Control

	mu     sync.RWMutex
	values []float64
}

// NewControllerAxes reads the given controls, in order, from src.
func NewControllerAxes(src EventSource, controls []input.Control) *ControllerAxes {
	return &ControllerAxes{
		src:      src,
		controls: controls,
		values:   make([]float64, len(controls)),
	}
}

// Refresh pulls the latest events. Controls without an event keep their
// previous value.
func (c *ControllerAxes) Refresh(ctx context.Context) error {
	events, err := c.src.Events(ctx, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, control := range c.controls {
		if ev, ok := events[control]; ok {
			c.values[i] = ev.Value
		}
	}
	return nil
}

// RawAxis returns the cached value of an axis.
func (c *ControllerAxes) RawAxis(axis int) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if axis < 0 || axis >= len(c.values) {
		return 0
	}
	return c.values[axis]
}

// AxisCount is the number of controls read.
func (c *ControllerAxes) AxisCount() int {
	return len(c.controls)
}
