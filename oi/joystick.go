package oi

// Joystick presents Axes as a drive stick: axis 0 is X and axis 1 is Y.
type Joystick struct {
	axes Axes
}

// NewJoystick wraps axes.
func NewJoystick(axes Axes) *Joystick {
	return &Joystick{axes: axes}
}

// X reads axis 0.
func (j *Joystick) X() float64 { return j.RawAxis(0) }

// Y reads axis 1.
func (j *Joystick) Y() float64 { return j.RawAxis(1) }

// RawAxis reads any axis; missing axes read 0.
func (j *Joystick) RawAxis(axis int) float64 {
	if j.axes == nil || axis < 0 || axis >= j.axes.AxisCount() {
		return 0
	}
	return j.axes.RawAxis(axis)
}

// AxisCount is the number of axes on the stick.
func (j *Joystick) AxisCount() int {
	if j.axes == nil {
		return 0
	}
	return j.axes.AxisCount()
}
