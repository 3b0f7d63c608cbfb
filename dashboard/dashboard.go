// Package dashboard publishes named telemetry values for the drive station.
package dashboard

import "sync"

// Dashboard accepts named telemetry values.
type Dashboard interface {
	PutNumber(key string, value float64)
	PutBoolean(key string, value bool)
}

// Loggable is anything that can write its state to a dashboard.
type Loggable interface {
	Log(d Dashboard)
}

// Table is an in-memory dashboard.
type Table struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: map[string]interface{}{}}
}

// PutNumber stores a number.
func (t *Table) PutNumber(key string, value float64) {
	t.set(key, value)
}

// PutBoolean stores a boolean.
func (t *Table) PutBoolean(key string, value bool) {
	t.set(key, value)
}

func (t *Table) set(key string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

// Get returns the value stored under key, or nil.
func (t *Table) Get(key string) interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.values[key]
}

// Snapshot copies every stored value.
func (t *Table) Snapshot() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]interface{}, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

type tee []Dashboard

// Tee writes every value to all of the given dashboards.
func Tee(dashboards ...Dashboard) Dashboard {
	return tee(dashboards)
}

func (t tee) PutNumber(key string, value float64) {
	for _, d := range t {
		d.PutNumber(key, value)
	}
}

func (t tee) PutBoolean(key string, value bool) {
	for _, d := range t {
		d.PutBoolean(key, value)
	}
}
