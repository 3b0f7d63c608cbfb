// Package drive converts tank, arcade and mecanum drive intents into
// normalized per-wheel motor commands for two- and four-motor drivetrains.
package drive

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/rdk/logging"

	"github.com/CardboardBread/AbsoluteLibrary/safety"
)

// Defaults applied by New.
const (
	DefaultExpiration  = safety.DefaultExpiration
	DefaultSensitivity = 0.5
	DefaultMaxOutput   = 1.0
)

var (
	// ErrInvalidArgument is wrapped by every argument validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNilStick is returned when a stick-based drive call gets a nil stick.
	ErrNilStick = errors.New("nil stick provided")
	// ErrRequiresFourMotors is returned by mecanum calls on a two-motor drive.
	ErrRequiresFourMotors = errors.New("mecanum drive requires four motors")
)

// Motor is a single motor output accepting a command in [-1, 1].
type Motor interface {
	Set(output float64)
	SetInverted(inverted bool)
	StopMotor()
}

// Stick is an input device providing axis values in [-1, 1].
type Stick interface {
	X() float64
	Y() float64
	RawAxis(axis int) float64
}

// Mode is fixed by which motors are given to New.
type Mode int

// Drive modes.
const (
	TwoMotor Mode = iota
	FourMotor
)

func (m Mode) String() string {
	if m == TwoMotor {
		return "two_motor"
	}
	return "four_motor"
}

func (m Mode) motors() int {
	if m == TwoMotor {
		return 2
	}
	return 4
}

// RobotDrive turns drive intents into motor outputs. It is meant to be used
// from a single control loop; only its safety helper is safe to share.
type RobotDrive struct {
	frontLeft  Motor
	frontRight Motor
	backLeft   Motor
	backRight  Motor
	mode       Mode

	sensitivity    float64
	maxOutput      float64
	leftOnlyOutput bool

	safetyHelper *safety.Helper
	reporter     Reporter
	logger       logging.Logger
}

// Option configures a RobotDrive.
type Option func(*driveOptions)

type driveOptions struct {
	reporter Reporter
	clock    clock.Clock
}

// WithReporter sets where first-use reports go. The default logs them.
func WithReporter(r Reporter) Option {
	return func(o *driveOptions) {
		o.reporter = r
	}
}

// WithClock sets the clock used by the safety helper.
func WithClock(c clock.Clock) Option {
	return func(o *driveOptions) {
		o.clock = c
	}
}

// NewTwoMotor builds a left/right drive.
func NewTwoMotor(logger logging.Logger, left, right Motor, opts ...Option) (*RobotDrive, error) {
	return New(logger, left, right, nil, nil, opts...)
}

// New builds a drive. The front motors are required. Leaving both back
// motors nil gives a two-motor drive; giving only one of them is an error.
// Motor safety starts enabled with DefaultExpiration.
func New(logger logging.Logger, frontLeft, frontRight, backLeft, backRight Motor, opts ...Option) (*RobotDrive, error) {
	if frontLeft == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "the front left motor cannot be nil")
	}
	if frontRight == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "the front right motor cannot be nil")
	}
	mode := FourMotor
	if backLeft == nil && backRight == nil {
		mode = TwoMotor
	} else {
		if backLeft == nil {
			return nil, errors.Wrap(ErrInvalidArgument, "the back left motor cannot be nil")
		}
		if backRight == nil {
			return nil, errors.Wrap(ErrInvalidArgument, "the back right motor cannot be nil")
		}
	}

	o := driveOptions{
		reporter: LogReporter{Logger: logger},
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &RobotDrive{
		frontLeft:   frontLeft,
		frontRight:  frontRight,
		backLeft:    backLeft,
		backRight:   backRight,
		mode:        mode,
		sensitivity: DefaultSensitivity,
		maxOutput:   DefaultMaxOutput,
		reporter:    o.reporter,
		logger:      logger,
	}
	d.safetyHelper = safety.NewHelper(d, logger, safety.WithClock(o.clock))
	d.safetyHelper.SetExpiration(DefaultExpiration)
	d.safetyHelper.SetSafetyEnabled(true)
	return d, nil
}

// Mode returns whether this is a two- or four-motor drive.
func (d *RobotDrive) Mode() Mode {
	return d.mode
}

// SafetyHelper exposes the watchdog so a looper can check it.
func (d *RobotDrive) SafetyHelper() *safety.Helper {
	return d.safetyHelper
}

// TankDrive drives each side from its own value.
func (d *RobotDrive) TankDrive(leftValue, rightValue float64, squaredInputs bool) {
	reportOnce(d.reporter, UsageTank, d.mode.motors())
	left, right := TankOutputs(leftValue, rightValue, squaredInputs)
	d.SetLeftRightMotorOutputs(left, right)
}

// TankDriveSticks drives from the Y axis of two sticks.
func (d *RobotDrive) TankDriveSticks(leftStick, rightStick Stick, squaredInputs bool) error {
	if leftStick == nil || rightStick == nil {
		return ErrNilStick
	}
	d.TankDrive(leftStick.Y(), rightStick.Y(), squaredInputs)
	return nil
}

// TankDriveAxes drives from a chosen axis on each of two sticks.
func (d *RobotDrive) TankDriveAxes(leftStick Stick, leftAxis int, rightStick Stick, rightAxis int, squaredInputs bool) error {
	if leftStick == nil || rightStick == nil {
		return ErrNilStick
	}
	d.TankDrive(leftStick.RawAxis(leftAxis), rightStick.RawAxis(rightAxis), squaredInputs)
	return nil
}

// ArcadeDrive drives from a move and a rotate value.
func (d *RobotDrive) ArcadeDrive(moveValue, rotateValue float64, squaredInputs bool) {
	reportOnce(d.reporter, UsageArcadeStandard, d.mode.motors())
	left, right := ArcadeOutputs(moveValue, rotateValue, squaredInputs)
	d.SetLeftRightMotorOutputs(left, right)
}

// ArcadeDriveStick drives from one stick: Y moves, X rotates.
func (d *RobotDrive) ArcadeDriveStick(stick Stick, squaredInputs bool) error {
	if stick == nil {
		return ErrNilStick
	}
	d.ArcadeDrive(stick.Y(), stick.X(), squaredInputs)
	return nil
}

// ArcadeDriveAxes drives from a chosen move axis and rotate axis.
func (d *RobotDrive) ArcadeDriveAxes(moveStick Stick, moveAxis int, rotateStick Stick, rotateAxis int, squaredInputs bool) error {
	if moveStick == nil || rotateStick == nil {
		return ErrNilStick
	}
	d.ArcadeDrive(moveStick.RawAxis(moveAxis), rotateStick.RawAxis(rotateAxis), squaredInputs)
	return nil
}

// MecanumDriveCartesian drives a mecanum chassis from x, y and rotation.
// gyroAngle in degrees makes the translation field-oriented; pass 0 for
// robot-oriented control.
func (d *RobotDrive) MecanumDriveCartesian(x, y, rotation, gyroAngle float64) error {
	if d.mode != FourMotor {
		return ErrRequiresFourMotors
	}
	reportOnce(d.reporter, UsageMecanumCartesian, d.mode.motors())
	d.setWheelSpeeds(MecanumCartesianSpeeds(x, y, rotation, gyroAngle))
	return nil
}

// MecanumDrivePolar drives a mecanum chassis at magnitude toward direction
// (degrees) while rotating.
func (d *RobotDrive) MecanumDrivePolar(magnitude, direction, rotation float64) error {
	if d.mode != FourMotor {
		return ErrRequiresFourMotors
	}
	reportOnce(d.reporter, UsageMecanumPolar, d.mode.motors())
	d.setWheelSpeeds(MecanumPolarSpeeds(magnitude, direction, rotation))
	return nil
}

func (d *RobotDrive) setWheelSpeeds(ws WheelSpeeds) {
	ws.Scale(d.maxOutput)
	d.frontLeft.Set(ws[FrontLeft])
	d.frontRight.Set(ws[FrontRight])
	d.backLeft.Set(ws[BackLeft])
	d.backRight.Set(ws[BackRight])
	d.safetyHelper.Feed()
}

// SetLeftRightMotorOutputs limits and scales each side, then sends left to
// the left motors and right to the right motors. With left-only dispatch
// enabled every motor gets left instead.
func (d *RobotDrive) SetLeftRightMotorOutputs(leftOutput, rightOutput float64) {
	left := Limit(leftOutput) * d.maxOutput
	right := Limit(rightOutput) * d.maxOutput
	if d.leftOnlyOutput {
		right = left
	}

	d.frontLeft.Set(left)
	d.frontRight.Set(right)
	if d.mode == FourMotor {
		d.backLeft.Set(left)
		d.backRight.Set(right)
	}
	d.safetyHelper.Feed()
}

// SetLeftOnlyDispatch makes SetLeftRightMotorOutputs drive every motor from
// the left output, as older robot code did. Off by default.
func (d *RobotDrive) SetLeftOnlyDispatch(enabled bool) {
	d.leftOnlyOutput = enabled
}

func (d *RobotDrive) motor(slot MotorType) (Motor, error) {
	switch slot {
	case FrontLeft:
		return d.frontLeft, nil
	case FrontRight:
		return d.frontRight, nil
	case BackLeft:
		return d.backLeft, nil
	case BackRight:
		return d.backRight, nil
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "illegal motor type: %d", int(slot))
	}
}

// SetInvertedMotor flips the direction of the motor in slot. Slots with no
// motor, like the back pair of a two-motor drive, are ignored.
func (d *RobotDrive) SetInvertedMotor(slot MotorType, inverted bool) error {
	m, err := d.motor(slot)
	if err != nil {
		return err
	}
	if m != nil {
		m.SetInverted(inverted)
	}
	return nil
}

// SetSensitivity stores the curve sensitivity. No transform reads it.
func (d *RobotDrive) SetSensitivity(sensitivity float64) {
	d.sensitivity = sensitivity
}

// Sensitivity returns the stored sensitivity.
func (d *RobotDrive) Sensitivity() float64 {
	return d.sensitivity
}

// SetMaxOutput sets the factor every output is multiplied by, for motor
// controllers running in a mode other than percent output.
func (d *RobotDrive) SetMaxOutput(maximum float64) {
	d.maxOutput = maximum
}

// MaxOutput returns the output scale factor.
func (d *RobotDrive) MaxOutput() float64 {
	return d.maxOutput
}

// SetExpiration sets the safety feed window.
func (d *RobotDrive) SetExpiration(expiration time.Duration) {
	d.safetyHelper.SetExpiration(expiration)
}

// Expiration returns the safety feed window.
func (d *RobotDrive) Expiration() time.Duration {
	return d.safetyHelper.Expiration()
}

// IsAlive reports whether the drive was fed within its window.
func (d *RobotDrive) IsAlive() bool {
	return d.safetyHelper.IsAlive()
}

// SetSafetyEnabled turns the watchdog on or off.
func (d *RobotDrive) SetSafetyEnabled(enabled bool) {
	d.safetyHelper.SetSafetyEnabled(enabled)
}

// IsSafetyEnabled reports whether the watchdog is on.
func (d *RobotDrive) IsSafetyEnabled() bool {
	return d.safetyHelper.IsSafetyEnabled()
}

// StopMotor stops every motor and counts as an output update.
func (d *RobotDrive) StopMotor() {
	d.frontLeft.StopMotor()
	d.frontRight.StopMotor()
	if d.mode == FourMotor {
		d.backLeft.StopMotor()
		d.backRight.StopMotor()
	}
	d.safetyHelper.Feed()
}

// Description names the drive in safety messages.
func (d *RobotDrive) Description() string {
	return "RobotDrive"
}
