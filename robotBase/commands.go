package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/CardboardBread/AbsoluteLibrary/drive"
	"github.com/CardboardBread/AbsoluteLibrary/subsystem"
)

func floatArg(cmd map[string]interface{}, key string) (float64, error) {
	raw, ok := cmd[key]
	if !ok {
		return 0, errors.Errorf("%s must be set to a number", key)
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, errors.Errorf("%s value must be a number but is type %T", key, raw)
	}
	return v, nil
}

func optionalFloatArg(cmd map[string]interface{}, key string, def float64) (float64, error) {
	if _, ok := cmd[key]; !ok {
		return def, nil
	}
	return floatArg(cmd, key)
}

func boolArg(cmd map[string]interface{}, key string) (bool, error) {
	raw, ok := cmd[key]
	if !ok {
		return false, errors.Errorf("%s must be set and a boolean value", key)
	}
	v, ok := raw.(bool)
	if !ok {
		return false, errors.Errorf("%s value must be a boolean", key)
	}
	return v, nil
}

func optionalBoolArg(cmd map[string]interface{}, key string, def bool) (bool, error) {
	if _, ok := cmd[key]; !ok {
		return def, nil
	}
	return boolArg(cmd, key)
}

func stringArg(cmd map[string]interface{}, key string) (string, error) {
	raw, ok := cmd[key]
	if !ok {
		return "", errors.Errorf("%s must be set to a string", key)
	}
	v, ok := raw.(string)
	if !ok {
		return "", errors.Errorf("%s value must be a string", key)
	}
	return strings.ToLower(v), nil
}

func processed(name string) map[string]interface{} {
	return map[string]interface{}{"return": fmt.Sprintf("%s command processed", name)}
}

// DoCommand executes additional commands beyond the Base{} interface: the
// raw drive modes, drive configuration, the compressor and telemetry.
func (b *robotBase) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd["command"]
	if !ok {
		return nil, errors.New("missing 'command' value")
	}
	switch name {
	case "tank":
		left, err := floatArg(cmd, "left")
		if err != nil {
			return nil, err
		}
		right, err := floatArg(cmd, "right")
		if err != nil {
			return nil, err
		}
		squared, err := optionalBoolArg(cmd, "squared", b.conf.SquaredInputs)
		if err != nil {
			return nil, err
		}
		if err := b.command(func(d *drive.RobotDrive) error {
			d.TankDrive(left, right, squared)
			b.isMoving.Store(left != 0 || right != 0)
			return nil
		}); err != nil {
			return nil, err
		}
		return processed("tank"), nil

	case "arcade":
		move, err := floatArg(cmd, "move")
		if err != nil {
			return nil, err
		}
		rotate, err := floatArg(cmd, "rotate")
		if err != nil {
			return nil, err
		}
		squared, err := optionalBoolArg(cmd, "squared", b.conf.SquaredInputs)
		if err != nil {
			return nil, err
		}
		if err := b.command(func(d *drive.RobotDrive) error {
			d.ArcadeDrive(move, rotate, squared)
			b.isMoving.Store(move != 0 || rotate != 0)
			return nil
		}); err != nil {
			return nil, err
		}
		return processed("arcade"), nil

	case "mecanum_cartesian":
		x, err := floatArg(cmd, "x")
		if err != nil {
			return nil, err
		}
		y, err := floatArg(cmd, "y")
		if err != nil {
			return nil, err
		}
		rotation, err := floatArg(cmd, "rotation")
		if err != nil {
			return nil, err
		}
		gyro, err := optionalFloatArg(cmd, "gyro_angle", 0)
		if err != nil {
			return nil, err
		}
		if err := b.command(func(d *drive.RobotDrive) error {
			if err := d.MecanumDriveCartesian(x, y, rotation, gyro); err != nil {
				return err
			}
			b.isMoving.Store(x != 0 || y != 0 || rotation != 0)
			return nil
		}); err != nil {
			return nil, err
		}
		return processed("mecanum_cartesian"), nil

	case "mecanum_polar":
		magnitude, err := floatArg(cmd, "magnitude")
		if err != nil {
			return nil, err
		}
		direction, err := floatArg(cmd, "direction")
		if err != nil {
			return nil, err
		}
		rotation, err := floatArg(cmd, "rotation")
		if err != nil {
			return nil, err
		}
		if err := b.command(func(d *drive.RobotDrive) error {
			if err := d.MecanumDrivePolar(magnitude, direction, rotation); err != nil {
				return err
			}
			b.isMoving.Store(magnitude != 0 || rotation != 0)
			return nil
		}); err != nil {
			return nil, err
		}
		return processed("mecanum_polar"), nil

	case "set_max_output":
		maxOutput, err := floatArg(cmd, "max_output")
		if err != nil {
			return nil, err
		}
		if maxOutput <= 0 || maxOutput > 1 {
			return nil, errors.New("max_output must be in (0, 1]")
		}
		b.useDrive(func(d *drive.RobotDrive) {
			d.SetMaxOutput(maxOutput)
		})
		return map[string]interface{}{"return": fmt.Sprintf("set_max_output command processed: %f", maxOutput)}, nil

	case "set_inverted":
		motorName, err := stringArg(cmd, "motor")
		if err != nil {
			return nil, err
		}
		inverted, err := boolArg(cmd, "inverted")
		if err != nil {
			return nil, err
		}
		slot, ok := drive.MotorTypeFromString(motorName)
		if !ok {
			return nil, errors.Wrapf(drive.ErrInvalidArgument, "unknown motor %q", motorName)
		}
		if err := b.withDrive(func(d *drive.RobotDrive) error {
			return d.SetInvertedMotor(slot, inverted)
		}); err != nil {
			return nil, err
		}
		return processed("set_inverted"), nil

	case "set_safety":
		enabled, err := boolArg(cmd, "enabled")
		if err != nil {
			return nil, err
		}
		expirationMs, err := optionalFloatArg(cmd, "expiration_ms", 0)
		if err != nil {
			return nil, err
		}
		if expirationMs < 0 {
			return nil, errors.New("expiration_ms cannot be negative")
		}
		b.useDrive(func(d *drive.RobotDrive) {
			if expirationMs > 0 {
				d.SetExpiration(time.Duration(expirationMs * float64(time.Millisecond)))
			}
			d.SetSafetyEnabled(enabled)
		})
		return processed("set_safety"), nil

	case "teleop":
		if b.teleop == nil {
			return nil, errors.New("no operator interface configured")
		}
		enabled, err := boolArg(cmd, "enabled")
		if err != nil {
			return nil, err
		}
		b.teleop.setEnabled(enabled)
		return processed("teleop"), nil

	case "compressor":
		action, err := stringArg(cmd, "action")
		if err != nil {
			return nil, err
		}
		return b.compressorCommand(action)

	case "get_telemetry":
		return b.telemetry(), nil

	default:
		return nil, fmt.Errorf("no such command: %s", name)
	}
}

func (b *robotBase) compressorCommand(action string) (map[string]interface{}, error) {
	var err error
	switch action {
	case "enable":
		err = b.pneumatics.Enable()
	case "disable":
		err = b.pneumatics.Disable()
	case "toggle":
		err = b.pneumatics.Toggle()
	case "clear_faults":
		err = b.pneumatics.ClearStickyFaults()
	case "status":
	default:
		return nil, errors.Errorf("action must be one of enable|disable|toggle|clear_faults|status, got %q", action)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"return":        fmt.Sprintf("compressor %s command processed", action),
		"enabled":       b.pneumatics.Enabled(),
		"pressurized":   b.pneumatics.Pressurized(),
		"current":       b.pneumatics.Current(),
		"faults":        subsystem.Active(b.pneumatics.Faults()),
		"sticky_faults": subsystem.Active(b.pneumatics.StickyFaults()),
	}, nil
}

// telemetry logs everything once and returns the dashboard contents along
// with the drive configuration.
func (b *robotBase) telemetry() map[string]interface{} {
	b.logLoop.LogAll()
	out := b.table.Snapshot()

	b.driveMu.Lock()
	out["drive_mode"] = b.drive.Mode().String()
	out["drive_style"] = b.conf.style()
	out["max_output"] = b.drive.MaxOutput()
	out["safety_enabled"] = b.drive.IsSafetyEnabled()
	out["expiration_ms"] = b.drive.Expiration().Milliseconds()
	out["alive"] = b.drive.IsAlive()
	out["safety_timeouts"] = b.drive.SafetyHelper().Timeouts()
	b.driveMu.Unlock()

	out["is_moving"] = b.isMoving.Load()
	if b.teleop != nil {
		out["teleop"] = b.teleop.enabled.Load()
		out["joystick"] = b.teleop.oi.Type().String()
	}
	return out
}
