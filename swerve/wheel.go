// Package swerve wraps one steerable wheel module.
package swerve

import (
	"github.com/pkg/errors"

	"github.com/CardboardBread/AbsoluteLibrary/drive"
)

// ErrMissingPart is returned when a wheel is built without all its parts.
var ErrMissingPart = errors.New("swerve wheel part cannot be nil")

// Encoder reports the steering angle in degrees.
type Encoder interface {
	Angle() float64
}

// Wheel pairs a drive motor and a steering motor with the steering encoder.
type Wheel struct {
	power drive.Motor
	turn  drive.Motor
	angle Encoder
}

// New builds a wheel.
func New(power, turn drive.Motor, angle Encoder) (*Wheel, error) {
	switch {
	case power == nil:
		return nil, errors.Wrap(ErrMissingPart, "power motor")
	case turn == nil:
		return nil, errors.Wrap(ErrMissingPart, "turn motor")
	case angle == nil:
		return nil, errors.Wrap(ErrMissingPart, "angle encoder")
	}
	return &Wheel{power: power, turn: turn, angle: angle}, nil
}

// Set drives both motors with outputs limited to [-1, 1].
func (w *Wheel) Set(power, turn float64) {
	w.power.Set(drive.Limit(power))
	w.turn.Set(drive.Limit(turn))
}

// Angle is the steering angle in degrees.
func (w *Wheel) Angle() float64 {
	return w.angle.Angle()
}

// Stop stops both motors.
func (w *Wheel) Stop() {
	w.power.StopMotor()
	w.turn.StopMotor()
}
