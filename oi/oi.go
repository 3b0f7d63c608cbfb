// Package oi binds the physical operator interface to drive inputs.
package oi

import (
	"go.viam.com/rdk/logging"
)

// Axes is a source of raw axis values in [-1, 1].
type Axes interface {
	RawAxis(axis int) float64
	AxisCount() int
}

// JoystickType is the controller layout, decided by the number of axes.
type JoystickType int

// Known layouts.
const (
	Unknown JoystickType = iota
	Flight
	Standard
)

// Axis counts of the known layouts.
const (
	FlightAxisCount   = 4
	StandardAxisCount = 6
)

func (t JoystickType) String() string {
	switch t {
	case Flight:
		return "flight"
	case Standard:
		return "standard"
	default:
		return "unknown"
	}
}

// TypeFromAxes classifies a controller by its axis count.
func TypeFromAxes(axes Axes) JoystickType {
	if axes == nil {
		return Unknown
	}
	switch axes.AxisCount() {
	case FlightAxisCount:
		return Flight
	case StandardAxisCount:
		return Standard
	default:
		return Unknown
	}
}

// Flight stick axes.
const (
	FlightRoll = iota
	FlightPitch
	FlightYaw
	FlightThrottle
)

// Standard gamepad axes.
const (
	StandardLeftX = iota
	StandardLeftY
	StandardLeftTrigger
	StandardRightTrigger
	StandardRightX
	StandardRightY
)

// OI maps the drive controls onto the axes of the attached controller.
type OI struct {
	axes Axes
	typ  JoystickType

	leftAxis  int
	rightAxis int
	turnAxis  int
	armAxis   int
}

// New detects the controller layout and picks the axes. An unrecognised
// controller is reported and every control reads axis 0.
func New(axes Axes, logger logging.Logger) *OI {
	o := &OI{axes: axes, typ: TypeFromAxes(axes)}

	switch o.typ {
	case Flight:
		o.armAxis = FlightThrottle
		o.leftAxis = FlightPitch
		o.rightAxis = FlightRoll
		o.turnAxis = 0
	case Standard:
		o.armAxis = StandardLeftX
		o.leftAxis = StandardLeftY
		o.rightAxis = StandardRightY
		o.turnAxis = StandardRightX
	default:
		count := 0
		if axes != nil {
			count = axes.AxisCount()
		}
		logger.Errorw("invalid number of axes on control joystick", "axes", count)
	}
	return o
}

// Type is the detected layout.
func (o *OI) Type() JoystickType { return o.typ }

// Joystick returns the controller as a drive stick.
func (o *OI) Joystick() *Joystick { return NewJoystick(o.axes) }

func (o *OI) value(axis int) float64 {
	if o.axes == nil {
		return 0
	}
	return o.axes.RawAxis(axis)
}

// LeftAxis is the tank left axis.
func (o *OI) LeftAxis() int { return o.leftAxis }

// LeftValue reads LeftAxis.
func (o *OI) LeftValue() float64 { return o.value(o.leftAxis) }

// MoveAxis is the arcade move axis, shared with LeftAxis.
func (o *OI) MoveAxis() int { return o.leftAxis }

// MoveValue reads MoveAxis.
func (o *OI) MoveValue() float64 { return o.value(o.leftAxis) }

// RightAxis is the tank right axis.
func (o *OI) RightAxis() int { return o.rightAxis }

// RightValue reads RightAxis.
func (o *OI) RightValue() float64 { return o.value(o.rightAxis) }

// RotateAxis is the arcade rotate axis, shared with RightAxis.
func (o *OI) RotateAxis() int { return o.rightAxis }

// RotateValue reads RotateAxis.
func (o *OI) RotateValue() float64 { return o.value(o.rightAxis) }

// ArmAxis drives the arm.
func (o *OI) ArmAxis() int { return o.armAxis }

// ArmValue reads ArmAxis.
func (o *OI) ArmValue() float64 { return o.value(o.armAxis) }

// TurnAxis is the mecanum rotation axis.
func (o *OI) TurnAxis() int { return o.turnAxis }

// TurnValue reads TurnAxis.
func (o *OI) TurnValue() float64 { return o.value(o.turnAxis) }
