package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	viamutils "go.viam.com/utils"

	"github.com/CardboardBread/AbsoluteLibrary/canio"
	"github.com/CardboardBread/AbsoluteLibrary/canmotor"
	"github.com/CardboardBread/AbsoluteLibrary/dashboard"
	"github.com/CardboardBread/AbsoluteLibrary/drive"
	"github.com/CardboardBread/AbsoluteLibrary/looper"
	"github.com/CardboardBread/AbsoluteLibrary/oi"
	"github.com/CardboardBread/AbsoluteLibrary/pneumatics"
	"github.com/CardboardBread/AbsoluteLibrary/subsystem"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/components/input"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

// errUnsupported is returned by the closed loop base methods.
var errUnsupported = errors.New("closed loop motion is not supported by this base, use SetPower")

// parts is the hardware a base drives, built by newBase from the config.
type parts struct {
	motors     [drive.NumMotors]drive.Motor
	loggable   []dashboard.Loggable
	pneumatics *pneumatics.Pneumatics
	hasPCM     bool
	axes       oi.Axes
	refresh    func(ctx context.Context) error
	dashboards []dashboard.Dashboard
	flush      func()
	workers    []func(ctx context.Context)
	closers    []func() error
}

func (p *parts) close() error {
	var err error
	for i := len(p.closers) - 1; i >= 0; i-- {
		err = multierr.Combine(err, p.closers[i]())
	}
	return err
}

type robotBase struct {
	resource.Named
	resource.AlwaysRebuild

	conf       *Config
	logger     logging.Logger
	geometries []spatialmath.Geometry

	driveMu sync.Mutex
	drive   *drive.RobotDrive

	pneumatics *pneumatics.Pneumatics
	hasPCM     bool
	table      *dashboard.Table
	logLoop    *subsystem.LogLoop
	looper     *looper.Looper
	teleop     *teleop
	parts      parts

	isMoving atomic.Bool

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// newBase opens the CAN bus and the configured inputs and outputs, then
// starts the control loop.
func newBase(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (base.Base, error) {
	newConf, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	var geometries = []spatialmath.Geometry{}
	if conf.Frame != nil {
		frame, err := conf.Frame.ParseConfig()
		if err != nil {
			return nil, err
		}
		geometries = append(geometries, frame.Geometry())
	}

	p := parts{}
	success := false
	defer func() {
		if !success {
			if err := p.close(); err != nil {
				logger.Warnw("error releasing partially built base", "error", err)
			}
		}
	}()

	channel := newConf.CANChannel
	if channel == "" {
		channel = canio.DefaultChannel
	}
	socketSend, err := canio.Open(channel, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open CAN channel %s", channel)
	}
	p.closers = append(p.closers, socketSend.Close)

	pub := canio.NewPublisher(socketSend, canio.DefaultPublishPeriod, nil, logger)
	router := canio.NewDispatcher(logger)
	p.flush = pub.Flush

	for i, id := range []*int{newConf.Motors.FrontLeft, newConf.Motors.FrontRight, newConf.Motors.BackLeft, newConf.Motors.BackRight} {
		if id == nil {
			continue
		}
		slot := drive.MotorType(i)
		m, err := canmotor.New(slot.String(), uint8(*id), pub, router, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create %s motor", slot)
		}
		p.motors[i] = m
		p.loggable = append(p.loggable, m)
	}

	var compressor pneumatics.Compressor
	if newConf.PCMID != nil {
		c, err := pneumatics.NewCANCompressor(uint8(*newConf.PCMID), pub, router, logger)
		if err != nil {
			return nil, err
		}
		compressor = c
		p.hasPCM = true
	}
	p.pneumatics = pneumatics.New("", compressor, logger)

	socketRecv, err := canio.Open(channel, canio.ExtendedFilters(router.IDs()...))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open CAN channel %s", channel)
	}
	p.closers = append(p.closers, socketRecv.Close)
	p.workers = append(p.workers, pub.Run, func(ctx context.Context) {
		router.Run(ctx, socketRecv)
	})

	switch {
	case newConf.Controller != "":
		ctrl, err := input.FromDependencies(deps, newConf.Controller)
		if err != nil {
			return nil, err
		}
		controls, err := oi.AxisControls(ctx, ctrl)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot list controls of %s", newConf.Controller)
		}
		axes := oi.NewControllerAxes(ctrl, controls)
		p.axes = axes
		p.refresh = axes.Refresh
	case newConf.IBusDevice != "":
		receiver, err := oi.OpenIBus(newConf.IBusDevice, nil, logger)
		if err != nil {
			return nil, err
		}
		p.axes = receiver
		p.closers = append(p.closers, receiver.Close)
		p.workers = append(p.workers, func(ctx context.Context) {
			if err := receiver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("iBus receiver stopped", "error", err)
			}
		})
	}

	if newConf.MQTTBroker != "" {
		client, err := dashboard.Connect(newConf.MQTTBroker, fmt.Sprintf("robotdrive-%s", conf.Name), logger)
		if err != nil {
			return nil, err
		}
		p.dashboards = append(p.dashboards, dashboard.NewMQTT(client, newConf.mqttTopic(), logger))
		p.closers = append(p.closers, func() error {
			client.Disconnect(250)
			return nil
		})
	}

	b, err := assemble(conf.ResourceName(), newConf, geometries, p, logger)
	if err != nil {
		return nil, err
	}
	success = true
	return b, nil
}

// assemble builds the drive over p and starts the background workers and
// the control loop. On success the base owns p.
func assemble(
	name resource.Name,
	conf *Config,
	geometries []spatialmath.Geometry,
	p parts,
	logger logging.Logger,
	opts ...drive.Option,
) (*robotBase, error) {
	d, err := drive.New(logger,
		p.motors[drive.FrontLeft], p.motors[drive.FrontRight],
		p.motors[drive.BackLeft], p.motors[drive.BackRight],
		opts...)
	if err != nil {
		return nil, err
	}
	d.SetLeftOnlyDispatch(conf.LeftOnlyDispatch)
	for _, motorName := range conf.Inverted {
		slot, ok := drive.MotorTypeFromString(motorName)
		if !ok {
			return nil, errors.Wrapf(drive.ErrInvalidArgument, "unknown motor %q in inverted", motorName)
		}
		if err := d.SetInvertedMotor(slot, true); err != nil {
			return nil, err
		}
	}
	if conf.MaxOutput != nil {
		d.SetMaxOutput(*conf.MaxOutput)
	}
	if conf.ExpirationMs > 0 {
		d.SetExpiration(time.Duration(conf.ExpirationMs) * time.Millisecond)
	}
	if p.pneumatics == nil {
		p.pneumatics = pneumatics.New("", nil, logger)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	b := &robotBase{
		Named:      name.AsNamed(),
		conf:       conf,
		logger:     logger,
		geometries: geometries,
		drive:      d,
		pneumatics: p.pneumatics,
		hasPCM:     p.hasPCM,
		table:      dashboard.NewTable(),
		parts:      p,
		cancel:     cancel,
	}

	dash := dashboard.Dashboard(b.table)
	if len(p.dashboards) > 0 {
		dash = dashboard.Tee(append([]dashboard.Dashboard{b.table}, p.dashboards...)...)
	}
	b.logLoop = subsystem.NewLogLoop(dash, conf.LogEvery, p.loggable...)
	b.logLoop.Register(b)
	if b.hasPCM {
		b.logLoop.Register(b.pneumatics)
	}

	b.looper = looper.New(time.Duration(conf.LoopPeriodMs)*time.Millisecond, logger)
	b.looper.Register(&safetyLoop{b: b})
	if p.axes != nil {
		b.teleop = newTeleop(cancelCtx, b, p.axes, p.refresh)
		b.looper.Register(b.teleop)
	}
	b.looper.Register(b.logLoop)

	b.activeBackgroundWorkers.Add(len(p.workers))
	for _, worker := range p.workers {
		worker := worker
		viamutils.ManagedGo(func() {
			worker(cancelCtx)
		}, b.activeBackgroundWorkers.Done)
	}
	b.looper.Start(cancelCtx)
	return b, nil
}

// safetyLoop checks the drive's motor safety each cycle.
type safetyLoop struct {
	b *robotBase
}

func (l *safetyLoop) OnStart() {}

func (l *safetyLoop) OnLoop() {
	l.b.driveMu.Lock()
	defer l.b.driveMu.Unlock()
	if !l.b.drive.IsAlive() {
		l.b.isMoving.Store(false)
	}
	l.b.drive.SafetyHelper().Check()
}

func (l *safetyLoop) OnStop() {}

// withDrive runs f on the drive under the drive lock.
func (b *robotBase) withDrive(f func(d *drive.RobotDrive) error) error {
	b.driveMu.Lock()
	defer b.driveMu.Unlock()
	return f(b.drive)
}

func (b *robotBase) useDrive(f func(d *drive.RobotDrive)) {
	b.driveMu.Lock()
	defer b.driveMu.Unlock()
	f(b.drive)
}

// command runs a motion command from the API. It suspends teleop under the
// same lock, so the next loop cycle does not overwrite the command with a
// centered stick.
func (b *robotBase) command(f func(d *drive.RobotDrive) error) error {
	b.driveMu.Lock()
	defer b.driveMu.Unlock()
	if b.teleop != nil {
		b.teleop.suspend()
	}
	return f(b.drive)
}

func gyroAngle(extra map[string]interface{}) float64 {
	if v, ok := extra["gyro_angle"].(float64); ok {
		return v
	}
	return 0
}

// MoveStraight is not supported.
func (b *robotBase) MoveStraight(ctx context.Context, distanceMm int, mmPerSec float64, extra map[string]interface{}) error {
	return errUnsupported
}

// Spin is not supported.
func (b *robotBase) Spin(ctx context.Context, angleDeg, degsPerSec float64, extra map[string]interface{}) error {
	return errUnsupported
}

// SetVelocity is not supported.
func (b *robotBase) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	return errUnsupported
}

// SetPower sets the linear and angular [-1, 1] drive power. Y is forward,
// X is strafe on a mecanum drive and positive Z turns left.
func (b *robotBase) SetPower(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.logger.Debugw("SetPower",
		"linear.X", linear.X,
		"linear.Y", linear.Y,
		"angular.Z", angular.Z,
	)
	if linear.Z != 0 {
		b.logger.Warnw("Linear Z command non-zero and has no effect")
	}
	if angular.X != 0 || angular.Y != 0 {
		b.logger.Warnw("Angular X and Y commands have no effect")
	}

	return b.command(func(d *drive.RobotDrive) error {
		if b.conf.style() == styleMecanum {
			gyro := 0.0
			if b.conf.FieldOriented {
				gyro = gyroAngle(extra)
			}
			if err := d.MecanumDriveCartesian(linear.X, -linear.Y, -angular.Z, gyro); err != nil {
				return err
			}
			b.isMoving.Store(linear.X != 0 || linear.Y != 0 || angular.Z != 0)
			return nil
		}
		if linear.X != 0 {
			b.logger.Warnw("Linear X command non-zero and has no effect")
		}
		d.ArcadeDrive(linear.Y, angular.Z, b.conf.SquaredInputs)
		b.isMoving.Store(linear.Y != 0 || angular.Z != 0)
		return nil
	})
}

// Stop stops every drive motor.
func (b *robotBase) Stop(ctx context.Context, extra map[string]interface{}) error {
	return b.command(func(d *drive.RobotDrive) error {
		d.StopMotor()
		b.isMoving.Store(false)
		return nil
	})
}

// IsMoving reports whether the last command asked for motion.
func (b *robotBase) IsMoving(ctx context.Context) (bool, error) {
	return b.isMoving.Load(), nil
}

func (b *robotBase) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return b.geometries, nil
}

func (b *robotBase) Properties(ctx context.Context, extra map[string]interface{}) (base.Properties, error) {
	return base.Properties{
		WidthMeters:              b.conf.widthMm() / 1000.0,
		WheelCircumferenceMeters: b.conf.wheelCircumferenceMm() / 1000.0,
	}, nil
}

// Log writes the drive state to d.
func (b *robotBase) Log(d dashboard.Dashboard) {
	b.driveMu.Lock()
	alive := b.drive.IsAlive()
	maxOutput := b.drive.MaxOutput()
	b.driveMu.Unlock()

	d.PutBoolean("Drive Alive", alive)
	d.PutNumber("Drive Max Output", maxOutput)
	d.PutBoolean("Drive Moving", b.isMoving.Load())
}

// Close stops the drive and releases the bus.
func (b *robotBase) Close(ctx context.Context) error {
	b.looper.Stop()
	b.isMoving.Store(false)
	b.useDrive(func(d *drive.RobotDrive) {
		d.StopMotor()
	})
	if b.parts.flush != nil {
		b.parts.flush()
	}
	b.cancel()

	err := b.parts.close()
	b.activeBackgroundWorkers.Wait()
	return err
}
