// Package canio holds the CAN plumbing shared by the motor controllers and
// the pneumatics module: sockets, signal codecs, a periodic publisher and a
// receive dispatcher.
package canio

import (
	"github.com/go-daq/canbus"
	"golang.org/x/sys/unix"
)

// DefaultChannel is the SocketCAN interface robots normally expose.
const DefaultChannel = "can0"

// Sender transmits frames. *canbus.Socket satisfies it.
type Sender interface {
	Send(frame canbus.Frame) (int, error)
}

// Receiver blocks for the next frame. *canbus.Socket satisfies it.
type Receiver interface {
	Recv() (canbus.Frame, error)
}

// Open creates a socket bound to channel. A non-empty filter list limits
// what the socket receives.
func Open(channel string, filters []unix.CanFilter) (*canbus.Socket, error) {
	socket, err := canbus.New()
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		if err := socket.SetFilters(filters); err != nil {
			socket.Close()
			return nil, err
		}
	}
	if err := socket.Bind(channel); err != nil {
		socket.Close()
		return nil, err
	}
	return socket, nil
}

// ExtendedFilters builds receive filters matching exactly the given 29-bit
// IDs.
func ExtendedFilters(ids ...uint32) []unix.CanFilter {
	filters := make([]unix.CanFilter, 0, len(ids))
	for _, id := range ids {
		filters = append(filters, unix.CanFilter{
			Id:   id | unix.CAN_EFF_FLAG,
			Mask: unix.CAN_EFF_MASK | unix.CAN_EFF_FLAG,
		})
	}
	return filters
}

// NewExtendedFrame returns an 8 byte zeroed frame with a 29-bit ID.
func NewExtendedFrame(id uint32) canbus.Frame {
	return canbus.Frame{
		ID:   id,
		Data: make([]byte, 8),
		Kind: canbus.EFF,
	}
}
