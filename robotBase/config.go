package main

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/CardboardBread/AbsoluteLibrary/canmotor"
	"github.com/CardboardBread/AbsoluteLibrary/drive"
	"github.com/CardboardBread/AbsoluteLibrary/pneumatics"
)

// Drive styles.
const (
	styleArcade  = "arcade"
	styleTank    = "tank"
	styleMecanum = "mecanum"
)

// Defaults for optional attributes.
const (
	defaultWidthMm              = 560.0
	defaultWheelCircumferenceMm = 478.8
	defaultMQTTTopic            = "robotdrive"
)

// MotorIDs are the CAN device numbers of the drive motors.
type MotorIDs struct {
	FrontLeft  *int `json:"front_left"`
	FrontRight *int `json:"front_right"`
	BackLeft   *int `json:"back_left,omitempty"`
	BackRight  *int `json:"back_right,omitempty"`
}

// Config describes the drive train.
type Config struct {
	CANChannel       string   `json:"can_channel,omitempty"`
	Motors           MotorIDs `json:"motors"`
	DriveStyle       string   `json:"drive_style,omitempty"`
	Inverted         []string `json:"inverted,omitempty"`
	MaxOutput        *float64 `json:"max_output,omitempty"`
	SquaredInputs    bool     `json:"squared_inputs,omitempty"`
	FieldOriented    bool     `json:"field_oriented,omitempty"`
	LeftOnlyDispatch bool     `json:"left_only_dispatch,omitempty"`
	ExpirationMs     int      `json:"expiration_ms,omitempty"`
	LoopPeriodMs     int      `json:"loop_period_ms,omitempty"`
	LogEvery         int      `json:"log_every,omitempty"`

	Controller string `json:"controller,omitempty"`
	IBusDevice string `json:"ibus_device,omitempty"`

	PCMID *int `json:"pcm_id,omitempty"`

	MQTTBroker string `json:"mqtt_broker,omitempty"`
	MQTTTopic  string `json:"mqtt_topic,omitempty"`

	WidthMm              float64 `json:"width_mm,omitempty"`
	WheelCircumferenceMm float64 `json:"wheel_circumference_mm,omitempty"`
}

func checkID(path, field string, id *int, limit int) error {
	if id == nil {
		return nil
	}
	if *id < 0 || *id > limit {
		return utils.NewConfigValidationError(path, errors.Errorf("%s must be between 0 and %d, got %d", field, limit, *id))
	}
	return nil
}

// Validate ensures all parts of the config are valid and returns the input
// controller dependency, if any.
func (conf *Config) Validate(path string) ([]string, error) {
	if conf.Motors.FrontLeft == nil {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "motors.front_left")
	}
	if conf.Motors.FrontRight == nil {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "motors.front_right")
	}
	if (conf.Motors.BackLeft == nil) != (conf.Motors.BackRight == nil) {
		return nil, utils.NewConfigValidationError(path, errors.New("back_left and back_right must be given together"))
	}
	for _, m := range []struct {
		field string
		id    *int
	}{
		{"motors.front_left", conf.Motors.FrontLeft},
		{"motors.front_right", conf.Motors.FrontRight},
		{"motors.back_left", conf.Motors.BackLeft},
		{"motors.back_right", conf.Motors.BackRight},
	} {
		if err := checkID(path, m.field, m.id, canmotor.MaxDeviceID); err != nil {
			return nil, err
		}
	}
	if err := checkID(path, "pcm_id", conf.PCMID, pneumatics.MaxModuleID); err != nil {
		return nil, err
	}

	switch conf.style() {
	case styleArcade, styleTank:
	case styleMecanum:
		if conf.Motors.BackLeft == nil {
			return nil, utils.NewConfigValidationError(path, drive.ErrRequiresFourMotors)
		}
	default:
		return nil, utils.NewConfigValidationError(path,
			errors.Errorf("drive_style must be one of %s|%s|%s, got %q", styleArcade, styleTank, styleMecanum, conf.DriveStyle))
	}

	for _, name := range conf.Inverted {
		if _, ok := drive.MotorTypeFromString(name); !ok {
			return nil, utils.NewConfigValidationError(path, errors.Errorf("unknown motor %q in inverted", name))
		}
	}
	if conf.MaxOutput != nil && (*conf.MaxOutput <= 0 || *conf.MaxOutput > 1) {
		return nil, utils.NewConfigValidationError(path, errors.New("max_output must be in (0, 1]"))
	}
	if conf.ExpirationMs < 0 || conf.LoopPeriodMs < 0 || conf.LogEvery < 0 {
		return nil, utils.NewConfigValidationError(path, errors.New("expiration_ms, loop_period_ms and log_every cannot be negative"))
	}
	if conf.Controller != "" && conf.IBusDevice != "" {
		return nil, utils.NewConfigValidationError(path, errors.New("only one of controller and ibus_device may be set"))
	}
	if conf.WidthMm < 0 || conf.WheelCircumferenceMm < 0 {
		return nil, utils.NewConfigValidationError(path, errors.New("width_mm and wheel_circumference_mm cannot be negative"))
	}

	var deps []string
	if conf.Controller != "" {
		deps = append(deps, conf.Controller)
	}
	return deps, nil
}

func (conf *Config) style() string {
	if conf.DriveStyle == "" {
		return styleArcade
	}
	return conf.DriveStyle
}

func (conf *Config) widthMm() float64 {
	if conf.WidthMm == 0 {
		return defaultWidthMm
	}
	return conf.WidthMm
}

func (conf *Config) wheelCircumferenceMm() float64 {
	if conf.WheelCircumferenceMm == 0 {
		return defaultWheelCircumferenceMm
	}
	return conf.WheelCircumferenceMm
}

func (conf *Config) mqttTopic() string {
	if conf.MQTTTopic == "" {
		return defaultMQTTTopic
	}
	return conf.MQTTTopic
}
