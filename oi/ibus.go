package oi

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"go.viam.com/rdk/logging"
)

// iBus framing.
const (
	IBusBaud        = 115200
	IBusPacketSize  = 32
	IBusChannels    = 14
	ibusHeader1     = 0x20
	ibusHeader2     = 0x40
	ibusChecksumAt  = IBusPacketSize - 2
	ibusChannelsAt  = 2
	ibusChannelMin  = 1000
	ibusChannelMid  = 1500
	ibusChannelSpan = 500
)

// DefaultIBusFailsafe is how long axes hold their last value without a
// valid packet before reading 0.
const DefaultIBusFailsafe = 100 * time.Millisecond

// FlightChannels maps Flight axes onto a transmitter in mode 2: roll,
// pitch, throttle, yaw.
var FlightChannels = []int{0, 1, 3, 2}

type ibusState int

const (
	waitingForHeader1 ibusState = iota
	waitingForHeader2
	readingPacket
)

type packetResult int

const (
	packetIncomplete packetResult = iota
	packetValid
	packetCorrupt
)

// ibusParser assembles packets one byte at a time.
type ibusParser struct {
	state  ibusState
	packet [IBusPacketSize]byte
	index  int
}

// feed consumes b. The channels are set when it completes a valid packet.
func (p *ibusParser) feed(b byte) ([IBusChannels]uint16, packetResult) {
	var channels [IBusChannels]uint16

	switch p.state {
	case waitingForHeader1:
		if b == ibusHeader1 {
			p.packet[0] = b
			p.state = waitingForHeader2
		}
	case waitingForHeader2:
		if b == ibusHeader2 {
			p.packet[1] = b
			p.index = 2
			p.state = readingPacket
		} else {
			p.state = waitingForHeader1
		}
	case readingPacket:
		p.packet[p.index] = b
		p.index++
		if p.index < IBusPacketSize {
			return channels, packetIncomplete
		}
		p.state = waitingForHeader1

		checksum := uint16(0xFFFF)
		for _, v := range p.packet[:ibusChecksumAt] {
			checksum -= uint16(v)
		}
		received := uint16(p.packet[ibusChecksumAt]) | uint16(p.packet[ibusChecksumAt+1])<<8
		if received != checksum {
			return channels, packetCorrupt
		}
		for i := range channels {
			at := ibusChannelsAt + 2*i
			channels[i] = uint16(p.packet[at]) | uint16(p.packet[at+1])<<8
		}
		return channels, packetValid
	}
	return channels, packetIncomplete
}

// IBus reads a FlySky iBus receiver.
type IBus struct {
	port     io.ReadCloser
	axes     []int
	failsafe time.Duration
	clock    clock.Clock
	logger   logging.Logger

	mu         sync.RWMutex
	parser     ibusParser
	channels   [IBusChannels]uint16
	lastPacket time.Time
	packets    int
	badPackets int
}

// IBusOption configures an IBus.
type IBusOption func(*IBus)

// WithIBusClock substitutes the clock used for failsafe timing.
func WithIBusClock(clk clock.Clock) IBusOption {
	return func(b *IBus) { b.clock = clk }
}

// WithFailsafe sets how long values survive without packets.
func WithFailsafe(d time.Duration) IBusOption {
	return func(b *IBus) { b.failsafe = d }
}

// OpenIBus opens a receiver on a serial device. axisChannels maps axis
// index to iBus channel; nil selects FlightChannels.
func OpenIBus(device string, axisChannels []int, logger logging.Logger, opts ...IBusOption) (*IBus, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        IBusBaud,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open iBus serial port %s", device)
	}
	return NewIBus(port, axisChannels, logger, opts...)
}

// NewIBus reads packets from port.
func NewIBus(port io.ReadCloser, axisChannels []int, logger logging.Logger, opts ...IBusOption) (*IBus, error) {
	if axisChannels == nil {
		axisChannels = FlightChannels
	}
	for _, ch := range axisChannels {
		if ch < 0 || ch >= IBusChannels {
			return nil, errors.Errorf("iBus channel %d out of range [0, %d)", ch, IBusChannels)
		}
	}
	b := &IBus{
		port:     port,
		axes:     axisChannels,
		failsafe: DefaultIBusFailsafe,
		clock:    clock.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Write feeds raw receiver bytes to the parser.
func (b *IBus) Write(data []byte) (int, error) {
	b.consume(data)
	return len(data), nil
}

func (b *IBus) consume(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range data {
		channels, result := b.parser.feed(v)
		switch result {
		case packetValid:
			b.channels = channels
			b.lastPacket = b.clock.Now()
			b.packets++
		case packetCorrupt:
			b.badPackets++
		case packetIncomplete:
		}
	}
}

// Run reads the port until ctx is done or the port fails.
func (b *IBus) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := b.port.Read(buf)
		if n > 0 {
			b.consume(buf[:n])
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "iBus read failed")
		}
	}
}

// Close closes the port.
func (b *IBus) Close() error {
	return b.port.Close()
}

// Connected reports whether a valid packet arrived within the failsafe time.
func (b *IBus) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected()
}

func (b *IBus) connected() bool {
	return b.packets > 0 && b.clock.Since(b.lastPacket) <= b.failsafe
}

// Channel returns the raw pulse width of a channel.
func (b *IBus) Channel(ch int) uint16 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ch < 0 || ch >= IBusChannels {
		return 0
	}
	return b.channels[ch]
}

// Stats returns the number of good and bad packets seen.
func (b *IBus) Stats() (packets, bad int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.packets, b.badPackets
}

// RawAxis maps the axis' channel from 1000..2000 onto -1..1. Axes read 0
// while the receiver is disconnected.
func (b *IBus) RawAxis(axis int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if axis < 0 || axis >= len(b.axes) || !b.connected() {
		return 0
	}
	raw := b.channels[b.axes[axis]]
	if raw < ibusChannelMin {
		return 0
	}
	v := (float64(raw) - ibusChannelMid) / ibusChannelSpan
	return math.Max(-1, math.Min(1, v))
}

// AxisCount is the number of mapped axes.
func (b *IBus) AxisCount() int {
	return len(b.axes)
}
