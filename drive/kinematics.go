package drive

import "math"

// NumMotors is the number of wheel slots a drive can address.
const NumMotors = 4

// MotorType selects one wheel slot of a drive.
type MotorType int

// Wheel slots in WheelSpeeds order.
const (
	FrontLeft MotorType = iota
	FrontRight
	BackLeft
	BackRight
)

func (m MotorType) String() string {
	switch m {
	case FrontLeft:
		return "front_left"
	case FrontRight:
		return "front_right"
	case BackLeft:
		return "back_left"
	case BackRight:
		return "back_right"
	default:
		return "unknown"
	}
}

// MotorTypeFromString parses the names produced by MotorType.String.
func MotorTypeFromString(name string) (MotorType, bool) {
	for m := FrontLeft; m <= BackRight; m++ {
		if m.String() == name {
			return m, true
		}
	}
	return -1, false
}

// WheelSpeeds holds one signed command per wheel slot.
type WheelSpeeds [NumMotors]float64

// Peak returns the largest magnitude across all slots.
func (ws *WheelSpeeds) Peak() float64 {
	peak := math.Abs(ws[0])
	for i := 1; i < NumMotors; i++ {
		if v := math.Abs(ws[i]); v > peak {
			peak = v
		}
	}
	return peak
}

// Normalize scales every slot down by the same factor when any slot exceeds
// 1.0 in magnitude. Speeds already within range are left untouched.
func (ws *WheelSpeeds) Normalize() {
	peak := ws.Peak()
	if peak <= 1.0 {
		return
	}
	for i := range ws {
		ws[i] /= peak
	}
}

// Scale multiplies every slot by factor.
func (ws *WheelSpeeds) Scale(factor float64) {
	for i := range ws {
		ws[i] *= factor
	}
}

// Limit clamps x to [-1, 1].
func Limit(x float64) float64 {
	if x > 1.0 {
		return 1.0
	}
	if x < -1.0 {
		return -1.0
	}
	return x
}

// Square returns sign(v)*v^2 when squared is set, v otherwise. It lowers
// sensitivity near zero while keeping -1, 0 and 1 fixed.
func Square(v float64, squared bool) float64 {
	if !squared {
		return v
	}
	if v >= 0.0 {
		return v * v
	}
	return -(v * v)
}

func shape(v float64, squared bool) float64 {
	return Square(Limit(v), squared)
}

// RotateVector rotates (x, y) by angleDeg degrees.
func RotateVector(x, y, angleDeg float64) (float64, float64) {
	rad := angleDeg * math.Pi / 180.0
	cosA := math.Cos(rad)
	sinA := math.Sin(rad)
	return x*cosA - y*sinA, x*sinA + y*cosA
}

// TankOutputs limits and optionally squares both sides.
func TankOutputs(leftValue, rightValue float64, squared bool) (float64, float64) {
	return shape(leftValue, squared), shape(rightValue, squared)
}

// ArcadeOutputs combines a move and a rotate value into left and right side
// outputs. The dominant axis wins so that no side exceeds the larger of the
// two inputs. A move of exactly zero takes the reverse branch.
func ArcadeOutputs(moveValue, rotateValue float64, squared bool) (left, right float64) {
	m := shape(moveValue, squared)
	r := shape(rotateValue, squared)

	if m > 0.0 {
		if r > 0.0 {
			left = m - r
			right = math.Max(m, r)
		} else {
			left = math.Max(m, -r)
			right = m + r
		}
	} else {
		if r > 0.0 {
			left = -math.Max(-m, r)
			right = m + r
		} else {
			left = m - r
			right = -math.Max(-m, -r)
		}
	}
	return left, right
}

// MecanumCartesianSpeeds mixes a field-relative (x, y) translation and a
// rotation into normalized wheel speeds. y follows the joystick convention
// where forward is negative; gyroAngle is in degrees.
func MecanumCartesianSpeeds(x, y, rotation, gyroAngle float64) WheelSpeeds {
	xIn, yIn := RotateVector(x, -y, gyroAngle)

	var ws WheelSpeeds
	ws[FrontLeft] = xIn + yIn + rotation
	ws[FrontRight] = -xIn + yIn - rotation
	ws[BackLeft] = -xIn + yIn + rotation
	ws[BackRight] = xIn + yIn - rotation
	ws.Normalize()
	return ws
}

// MecanumPolarSpeeds mixes a magnitude, a direction in degrees and a
// rotation into normalized wheel speeds. Magnitude is scaled by sqrt(2) so a
// full command along either axis drives the wheels at full power.
func MecanumPolarSpeeds(magnitude, direction, rotation float64) WheelSpeeds {
	magnitude = Limit(magnitude) * math.Sqrt2
	// rollers sit at 45 degrees
	dirInRad := (direction + 45.0) * math.Pi / 180.0
	cosD := math.Cos(dirInRad)
	sinD := math.Sin(dirInRad)

	var ws WheelSpeeds
	ws[FrontLeft] = sinD*magnitude + rotation
	ws[FrontRight] = cosD*magnitude - rotation
	ws[BackLeft] = cosD*magnitude + rotation
	ws[BackRight] = sinD*magnitude - rotation
	ws.Normalize()
	return ws
}
