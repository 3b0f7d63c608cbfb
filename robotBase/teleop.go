package main

import (
	"context"
	"math"
	"time"

	"go.uber.org/atomic"

	"github.com/CardboardBread/AbsoluteLibrary/drive"
	"github.com/CardboardBread/AbsoluteLibrary/oi"
)

const (
	// refreshTimeout bounds a controller read within one loop cycle.
	refreshTimeout = 10 * time.Millisecond

	// deadband is how far a driving axis must leave center to take control
	// back from an API command.
	deadband = 0.1
)

// operatorInput is one cycle of stick input in robot terms. Stick Y axes
// read negative when pushed forward, so forward, left and right are negated
// here and positive drives ahead. Positive strafe moves right and positive
// turn rotates clockwise.
type operatorInput struct {
	strafe, forward, turn float64
	left, right           float64
}

func (s operatorInput) active() bool {
	for _, v := range []float64{s.strafe, s.forward, s.turn, s.left, s.right} {
		if math.Abs(v) > deadband {
			return true
		}
	}
	return false
}

// teleop drives from the operator interface every loop cycle while enabled.
// Motion commands from the API suspend it until the operator moves a
// driving axis again.
type teleop struct {
	ctx     context.Context
	b       *robotBase
	oi      *oi.OI
	stick   *oi.Joystick
	refresh func(ctx context.Context) error

	enabled   atomic.Bool
	suspended atomic.Bool
}

func newTeleop(ctx context.Context, b *robotBase, axes oi.Axes, refresh func(ctx context.Context) error) *teleop {
	t := &teleop{
		ctx:     ctx,
		b:       b,
		oi:      oi.New(axes, b.logger),
		stick:   oi.NewJoystick(axes),
		refresh: refresh,
	}
	t.enabled.Store(true)
	return t
}

func (t *teleop) setEnabled(enabled bool) {
	t.enabled.Store(enabled)
	if enabled {
		t.suspended.Store(false)
	}
}

func (t *teleop) suspend() {
	t.suspended.Store(true)
}

func (t *teleop) OnStart() {
	t.b.logger.Infow("teleop started", "joystick", t.oi.Type().String(), "style", t.b.conf.style())
}

func (t *teleop) OnLoop() {
	if !t.enabled.Load() {
		return
	}
	if t.refresh != nil {
		ctx, cancel := context.WithTimeout(t.ctx, refreshTimeout)
		err := t.refresh(ctx)
		cancel()
		if err != nil {
			t.b.logger.Debugw("controller read failed", "error", err)
			return
		}
	}

	in := t.read()
	err := t.b.withDrive(func(d *drive.RobotDrive) error {
		if t.suspended.Load() {
			if !in.active() {
				return nil
			}
			t.suspended.Store(false)
			t.b.logger.Infow("operator input resumed teleop")
		}
		return t.drive(d, in)
	})
	if err != nil {
		t.b.logger.Errorw("teleop drive failed", "error", err)
	}
}

func (t *teleop) read() operatorInput {
	in := operatorInput{
		strafe:  t.stick.X(),
		forward: -t.oi.MoveValue(),
		turn:    t.oi.RotateValue(),
		left:    -t.oi.LeftValue(),
		right:   -t.oi.RightValue(),
	}
	if t.b.conf.style() == styleMecanum {
		in.turn = t.oi.TurnValue()
		if t.oi.Type() == oi.Flight {
			in.turn = t.stick.RawAxis(oi.FlightYaw)
		}
	}
	return in
}

// drive runs one cycle of input on d. Callers hold driveMu.
func (t *teleop) drive(d *drive.RobotDrive, in operatorInput) error {
	squared := t.b.conf.SquaredInputs
	switch t.b.conf.style() {
	case styleTank:
		d.TankDrive(in.left, in.right, squared)
		t.b.isMoving.Store(in.left != 0 || in.right != 0)
	case styleMecanum:
		// the drive negates y itself
		if err := d.MecanumDriveCartesian(in.strafe, -in.forward, in.turn, 0); err != nil {
			return err
		}
		t.b.isMoving.Store(in.strafe != 0 || in.forward != 0 || in.turn != 0)
	default:
		// arcade turns left for positive rotate
		d.ArcadeDrive(in.forward, -in.turn, squared)
		t.b.isMoving.Store(in.forward != 0 || in.turn != 0)
	}
	return nil
}

func (t *teleop) OnStop() {}
