package subsystem

import (
	"sync"

	"github.com/CardboardBread/AbsoluteLibrary/dashboard"
)

// DefaultLogEvery is the number of loop cycles between dashboard updates.
const DefaultLogEvery = 5

// LogLoop writes every registered Loggable to a dashboard once every n
// looper cycles. It implements looper.Loop.
type LogLoop struct {
	dash  dashboard.Dashboard
	every int

	mu       sync.Mutex
	loggable []dashboard.Loggable
	cycle    int
}

// NewLogLoop returns a loop logging to d. A non-positive every selects
// DefaultLogEvery.
func NewLogLoop(d dashboard.Dashboard, every int, loggable ...dashboard.Loggable) *LogLoop {
	if every <= 0 {
		every = DefaultLogEvery
	}
	return &LogLoop{dash: d, every: every, loggable: loggable}
}

// Register adds l to the set logged each time.
func (l *LogLoop) Register(loggable dashboard.Loggable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loggable = append(l.loggable, loggable)
}

// LogAll logs everything now.
func (l *LogLoop) LogAll() {
	l.mu.Lock()
	loggable := append([]dashboard.Loggable(nil), l.loggable...)
	l.mu.Unlock()

	for _, lg := range loggable {
		lg.Log(l.dash)
	}
}

// OnStart logs an initial snapshot.
func (l *LogLoop) OnStart() {
	l.mu.Lock()
	l.cycle = 0
	l.mu.Unlock()
	l.LogAll()
}

// OnLoop logs on every n-th call.
func (l *LogLoop) OnLoop() {
	l.mu.Lock()
	l.cycle++
	due := l.cycle%l.every == 0
	l.mu.Unlock()
	if due {
		l.LogAll()
	}
}

// OnStop logs a final snapshot.
func (l *LogLoop) OnStop() {
	l.LogAll()
}
