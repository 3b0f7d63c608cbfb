// Package subsystem describes the optional capabilities robot hardware can
// expose beyond actuation.
package subsystem

// Powered devices report their electrical state.
type Powered interface {
	Voltage() float64
	Current() float64
	Temperature() float64
}

// Wattage is the power draw of p.
func Wattage(p Powered) float64 {
	return p.Voltage() * p.Current()
}

// Fault is one named fault condition.
type Fault struct {
	Name   string
	Active bool
}

// Faulting devices report live and latched faults.
type Faulting interface {
	Faults() []Fault
	StickyFaults() []Fault
	ClearStickyFaults() error
}

// Active returns the names of the active faults.
func Active(faults []Fault) []string {
	var names []string
	for _, f := range faults {
		if f.Active {
			names = append(names, f.Name)
		}
	}
	return names
}
