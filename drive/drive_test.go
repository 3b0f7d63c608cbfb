package drive

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rdk/logging"
)

type fakeMotor struct {
	output   float64
	inverted bool
	sets     int
	stops    int
}

func (m *fakeMotor) Set(output float64) {
	m.output = output
	m.sets++
}

func (m *fakeMotor) SetInverted(inverted bool) {
	m.inverted = inverted
}

func (m *fakeMotor) StopMotor() {
	m.output = 0
	m.stops++
}

type fakeStick struct {
	x, y float64
	axes map[int]float64
}

func (s *fakeStick) X() float64 { return s.x }
func (s *fakeStick) Y() float64 { return s.y }

func (s *fakeStick) RawAxis(axis int) float64 {
	return s.axes[axis]
}

type recordingReporter struct {
	usages []Usage
	motors []int
}

func (r *recordingReporter) ReportUsage(usage Usage, motors int) {
	r.usages = append(r.usages, usage)
	r.motors = append(r.motors, motors)
}

func newFourMotorDrive(t *testing.T, opts ...Option) (*RobotDrive, [4]*fakeMotor) {
	t.Helper()
	motors := [4]*fakeMotor{{}, {}, {}, {}}
	d, err := New(logging.NewTestLogger(t), motors[0], motors[1], motors[2], motors[3], opts...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Mode(), test.ShouldEqual, FourMotor)
	test.That(t, d.Mode().String(), test.ShouldEqual, "four_motor")
	return d, motors
}

func newTwoMotorDrive(t *testing.T, opts ...Option) (*RobotDrive, *fakeMotor, *fakeMotor) {
	t.Helper()
	left, right := &fakeMotor{}, &fakeMotor{}
	d, err := NewTwoMotor(logging.NewTestLogger(t), left, right, opts...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Mode(), test.ShouldEqual, TwoMotor)
	test.That(t, d.Mode().String(), test.ShouldEqual, "two_motor")
	return d, left, right
}

func TestNewValidation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m := &fakeMotor{}

	_, err := New(logger, nil, m, nil, nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front left")

	_, err = New(logger, m, nil, nil, nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front right")

	_, err = New(logger, m, m, m, nil)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "back right")

	_, err = New(logger, m, m, nil, m)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "back left")

	test.That(t, m.sets, test.ShouldEqual, 0)
	test.That(t, m.stops, test.ShouldEqual, 0)

	d, err := New(logger, m, m, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Mode(), test.ShouldEqual, TwoMotor)
	test.That(t, d.MaxOutput(), test.ShouldEqual, DefaultMaxOutput)
	test.That(t, d.Sensitivity(), test.ShouldEqual, DefaultSensitivity)
	test.That(t, d.Expiration(), test.ShouldEqual, DefaultExpiration)
	test.That(t, d.IsSafetyEnabled(), test.ShouldBeTrue)
}

func TestTankDrive(t *testing.T) {
	t.Run("four motors", func(t *testing.T) {
		d, m := newFourMotorDrive(t)
		d.TankDrive(0.5, -0.25, false)
		test.That(t, m[FrontLeft].output, test.ShouldEqual, 0.5)
		test.That(t, m[BackLeft].output, test.ShouldEqual, 0.5)
		test.That(t, m[FrontRight].output, test.ShouldEqual, -0.25)
		test.That(t, m[BackRight].output, test.ShouldEqual, -0.25)
	})

	t.Run("two motors", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t)
		d.TankDrive(-0.5, 0.5, true)
		test.That(t, left.output, test.ShouldEqual, -0.25)
		test.That(t, right.output, test.ShouldEqual, 0.25)
	})

	t.Run("left only dispatch", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t)
		d.SetLeftOnlyDispatch(true)
		d.TankDrive(0.5, -1, false)
		test.That(t, left.output, test.ShouldEqual, 0.5)
		test.That(t, right.output, test.ShouldEqual, 0.5)

		d4, m := newFourMotorDrive(t)
		d4.SetLeftOnlyDispatch(true)
		d4.TankDrive(0.75, -1, false)
		for _, motor := range m {
			test.That(t, motor.output, test.ShouldEqual, 0.75)
		}
	})

	t.Run("sticks", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t)
		err := d.TankDriveSticks(&fakeStick{y: 0.4}, &fakeStick{y: -0.6}, false)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, left.output, test.ShouldEqual, 0.4)
		test.That(t, right.output, test.ShouldEqual, -0.6)

		err = d.TankDriveAxes(&fakeStick{axes: map[int]float64{3: 0.1}}, 3, &fakeStick{axes: map[int]float64{5: 0.2}}, 5, false)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, left.output, test.ShouldEqual, 0.1)
		test.That(t, right.output, test.ShouldEqual, 0.2)
	})

	t.Run("nil sticks are rejected before output", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t)
		test.That(t, d.TankDriveSticks(nil, &fakeStick{}, true), test.ShouldEqual, ErrNilStick)
		test.That(t, d.TankDriveAxes(&fakeStick{}, 0, nil, 1, true), test.ShouldEqual, ErrNilStick)
		test.That(t, d.ArcadeDriveStick(nil, true), test.ShouldEqual, ErrNilStick)
		test.That(t, d.ArcadeDriveAxes(nil, 1, &fakeStick{}, 0, true), test.ShouldEqual, ErrNilStick)
		test.That(t, left.sets, test.ShouldEqual, 0)
		test.That(t, right.sets, test.ShouldEqual, 0)
	})
}

func TestArcadeDrive(t *testing.T) {
	d, m := newFourMotorDrive(t)
	d.ArcadeDrive(0.8, 0.2, false)
	test.That(t, m[FrontLeft].output, test.ShouldAlmostEqual, 0.6)
	test.That(t, m[BackLeft].output, test.ShouldAlmostEqual, 0.6)
	test.That(t, m[FrontRight].output, test.ShouldAlmostEqual, 0.8)
	test.That(t, m[BackRight].output, test.ShouldAlmostEqual, 0.8)

	err := d.ArcadeDriveStick(&fakeStick{x: 0.5, y: 0}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m[FrontLeft].output, test.ShouldEqual, -0.5)
	test.That(t, m[FrontRight].output, test.ShouldEqual, 0.5)

	err = d.ArcadeDriveAxes(&fakeStick{axes: map[int]float64{1: -1}}, 1, &fakeStick{axes: map[int]float64{4: 0}}, 4, true)
	test.That(t, err, test.ShouldBeNil)
	for _, motor := range m {
		test.That(t, motor.output, test.ShouldEqual, -1.0)
	}
}

func TestMecanumDrive(t *testing.T) {
	t.Run("cartesian scaled by max output", func(t *testing.T) {
		d, m := newFourMotorDrive(t)
		d.SetMaxOutput(0.5)
		test.That(t, d.MecanumDriveCartesian(1, 0, 0, 0), test.ShouldBeNil)
		test.That(t, m[FrontLeft].output, test.ShouldAlmostEqual, 0.5)
		test.That(t, m[FrontRight].output, test.ShouldAlmostEqual, -0.5)
		test.That(t, m[BackLeft].output, test.ShouldAlmostEqual, -0.5)
		test.That(t, m[BackRight].output, test.ShouldAlmostEqual, 0.5)
	})

	t.Run("polar", func(t *testing.T) {
		d, m := newFourMotorDrive(t)
		test.That(t, d.MecanumDrivePolar(1, 0, 0), test.ShouldBeNil)
		for _, motor := range m {
			test.That(t, motor.output, test.ShouldAlmostEqual, 1.0)
		}
	})

	t.Run("needs four motors", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t)
		test.That(t, d.MecanumDriveCartesian(1, 0, 0, 0), test.ShouldEqual, ErrRequiresFourMotors)
		test.That(t, d.MecanumDrivePolar(1, 0, 0), test.ShouldEqual, ErrRequiresFourMotors)
		test.That(t, left.sets, test.ShouldEqual, 0)
		test.That(t, right.sets, test.ShouldEqual, 0)
	})
}

func TestSetLeftRightMotorOutputs(t *testing.T) {
	d, m := newFourMotorDrive(t)
	d.SetMaxOutput(0.5)
	d.SetLeftRightMotorOutputs(3, -0.5)
	test.That(t, m[FrontLeft].output, test.ShouldEqual, 0.5)
	test.That(t, m[BackLeft].output, test.ShouldEqual, 0.5)
	test.That(t, m[FrontRight].output, test.ShouldEqual, -0.25)
	test.That(t, m[BackRight].output, test.ShouldEqual, -0.25)
}

func TestSetInvertedMotor(t *testing.T) {
	d, m := newFourMotorDrive(t)
	for slot := FrontLeft; slot <= BackRight; slot++ {
		test.That(t, d.SetInvertedMotor(slot, true), test.ShouldBeNil)
		test.That(t, m[slot].inverted, test.ShouldBeTrue)
	}
	test.That(t, d.SetInvertedMotor(FrontRight, false), test.ShouldBeNil)
	test.That(t, m[FrontRight].inverted, test.ShouldBeFalse)

	err := d.SetInvertedMotor(MotorType(7), true)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	for _, motor := range m {
		test.That(t, motor.sets, test.ShouldEqual, 0)
	}

	d2, left, _ := newTwoMotorDrive(t)
	test.That(t, d2.SetInvertedMotor(BackLeft, true), test.ShouldBeNil)
	test.That(t, d2.SetInvertedMotor(FrontLeft, true), test.ShouldBeNil)
	test.That(t, left.inverted, test.ShouldBeTrue)
}

func TestSensitivityIsStoredOnly(t *testing.T) {
	d, m := newFourMotorDrive(t)
	d.SetSensitivity(0.9)
	test.That(t, d.Sensitivity(), test.ShouldEqual, 0.9)
	d.ArcadeDrive(0.5, 0, false)
	test.That(t, m[FrontLeft].output, test.ShouldEqual, 0.5)
}

func TestMotorSafety(t *testing.T) {
	mockClock := clock.NewMock()

	t.Run("every output feeds", func(t *testing.T) {
		d, _ := newFourMotorDrive(t, WithClock(mockClock))
		calls := []func(){
			func() { d.TankDrive(0.1, 0.1, false) },
			func() { d.ArcadeDrive(0.1, 0.1, false) },
			func() { test.That(t, d.MecanumDriveCartesian(0.1, 0, 0, 0), test.ShouldBeNil) },
			func() { test.That(t, d.MecanumDrivePolar(0.1, 0, 0), test.ShouldBeNil) },
			func() { d.SetLeftRightMotorOutputs(0.1, 0.1) },
			d.StopMotor,
		}
		for _, call := range calls {
			mockClock.Add(time.Second)
			test.That(t, d.IsAlive(), test.ShouldBeFalse)
			call()
			test.That(t, d.IsAlive(), test.ShouldBeTrue)
		}
	})

	t.Run("expired drive is stopped", func(t *testing.T) {
		d, m := newFourMotorDrive(t, WithClock(mockClock))
		d.SetExpiration(50 * time.Millisecond)
		test.That(t, d.Expiration(), test.ShouldEqual, 50*time.Millisecond)
		d.TankDrive(1, 1, false)

		mockClock.Add(40 * time.Millisecond)
		d.SafetyHelper().Check()
		test.That(t, m[FrontLeft].output, test.ShouldEqual, 1.0)

		mockClock.Add(20 * time.Millisecond)
		d.SafetyHelper().Check()
		for _, motor := range m {
			test.That(t, motor.stops, test.ShouldEqual, 1)
			test.That(t, motor.output, test.ShouldEqual, 0.0)
		}
		test.That(t, d.IsAlive(), test.ShouldBeTrue)
	})

	t.Run("disabled safety is always alive", func(t *testing.T) {
		d, _ := newFourMotorDrive(t, WithClock(mockClock))
		d.SetSafetyEnabled(false)
		test.That(t, d.IsSafetyEnabled(), test.ShouldBeFalse)
		mockClock.Add(time.Hour)
		test.That(t, d.IsAlive(), test.ShouldBeTrue)
	})

	t.Run("two motor stop halts both sides", func(t *testing.T) {
		d, left, right := newTwoMotorDrive(t, WithClock(mockClock))
		d.StopMotor()
		test.That(t, left.stops, test.ShouldEqual, 1)
		test.That(t, right.stops, test.ShouldEqual, 1)
	})
}

func TestUsageReportedOncePerFamily(t *testing.T) {
	resetReported()
	defer resetReported()

	r := &recordingReporter{}
	d, _ := newFourMotorDrive(t, WithReporter(r))
	d.TankDrive(0, 0, false)
	d.TankDrive(0, 0, false)
	d.ArcadeDrive(0, 0, false)
	test.That(t, d.MecanumDriveCartesian(0, 0, 0, 0), test.ShouldBeNil)
	test.That(t, d.MecanumDrivePolar(0, 0, 0), test.ShouldBeNil)

	// a second drive in the same process reports nothing new
	d2, _, _ := newTwoMotorDrive(t, WithReporter(r))
	d2.TankDrive(0, 0, false)
	d2.ArcadeDrive(0, 0, false)

	test.That(t, r.usages, test.ShouldResemble,
		[]Usage{UsageTank, UsageArcadeStandard, UsageMecanumCartesian, UsageMecanumPolar})
	test.That(t, r.motors, test.ShouldResemble, []int{4, 4, 4, 4})
}
