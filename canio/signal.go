package canio

import (
	"math"

	"github.com/pkg/errors"
)

// ErrShortFrame is returned when a signal does not fit in the frame data.
var ErrShortFrame = errors.New("frame too short for signal")

const bitsPerByte = 8

// Signal describes a scaled integer packed into a CAN payload. Start is the
// payload bit of the signal's least significant bit, counting from bit 0 of
// byte Start/8. Length may be at most 32 bits.
type Signal struct {
	Scale        float64
	Offset       float64
	Start        uint8
	Length       uint8
	LittleEndian bool
	Signed       bool
}

func (s Signal) span() (first, last int) {
	first = int(s.Start) / bitsPerByte
	last = (int(s.Start) + int(s.Length) - 1) / bitsPerByte
	return first, last
}

func (s Signal) check(data []byte) error {
	if s.Length == 0 || s.Length > 32 {
		return errors.Errorf("invalid signal length %d", s.Length)
	}
	if _, last := s.span(); last >= len(data) {
		return errors.Wrapf(ErrShortFrame, "need %d bytes, have %d", last+1, len(data))
	}
	return nil
}

func (s Signal) mask() uint64 {
	return 1<<uint(s.Length) - 1
}

func (s Signal) shift() uint {
	return uint(s.Start) % bitsPerByte
}

// window reads the bytes the signal spans as one integer in the signal's
// byte order.
func (s Signal) window(data []byte) uint64 {
	first, last := s.span()
	var w uint64
	for i := first; i <= last; i++ {
		if s.LittleEndian {
			w |= uint64(data[i]) << (bitsPerByte * uint(i-first))
		} else {
			w = w<<bitsPerByte | uint64(data[i])
		}
	}
	return w
}

func (s Signal) putWindow(data []byte, w uint64) {
	first, last := s.span()
	for i := first; i <= last; i++ {
		if s.LittleEndian {
			data[i] = byte(w >> (bitsPerByte * uint(i-first)))
		} else {
			data[i] = byte(w >> (bitsPerByte * uint(last-i)))
		}
	}
}

// Extract decodes the signal from data.
func (s Signal) Extract(data []byte) (float64, error) {
	if err := s.check(data); err != nil {
		return 0, err
	}
	raw := (s.window(data) >> s.shift()) & s.mask()

	var value float64
	if s.Signed && raw&(1<<uint(s.Length-1)) != 0 {
		value = float64(int64(raw | ^s.mask()))
	} else {
		value = float64(raw)
	}
	return value*s.Scale + s.Offset, nil
}

// Insert encodes value into data, leaving bits outside the signal alone.
// Values outside the representable range saturate.
func (s Signal) Insert(data []byte, value float64) error {
	if err := s.check(data); err != nil {
		return err
	}
	if s.Scale == 0 {
		return errors.New("signal scale cannot be zero")
	}
	scaled := math.Round((value - s.Offset) / s.Scale)

	var lo, hi float64
	if s.Signed {
		lo = -float64(uint64(1) << uint(s.Length-1))
		hi = float64(uint64(1)<<uint(s.Length-1)) - 1
	} else {
		hi = float64(s.mask())
	}
	scaled = math.Max(lo, math.Min(hi, scaled))
	raw := uint64(int64(scaled)) & s.mask()

	w := s.window(data)
	w &^= s.mask() << s.shift()
	w |= raw << s.shift()
	s.putWindow(data, w)
	return nil
}
