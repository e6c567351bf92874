package input

import (
	"fmt"
	"time"
)

// Edge is the transition a key event reports. Values match the evdev
// EV_KEY value field.
type Edge int32

const (
	EdgeUp     Edge = 0
	EdgeDown   Edge = 1
	EdgeRepeat Edge = 2
)

// String returns the string representation of the Edge.
func (e Edge) String() string {
	switch e {
	case EdgeUp:
		return "up"
	case EdgeDown:
		return "down"
	case EdgeRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("Edge(%d)", int32(e))
	}
}

// ButtonEvent is a single key transition read from an input device.
type ButtonEvent struct {
	Source string // device path
	Code   uint16
	Edge   Edge
	Time   time.Time
}

// IsDown reports whether the event is a press.
func (e ButtonEvent) IsDown() bool {
	return e.Edge == EdgeDown
}

// Device is an opened input device that can emit button events.
//
// ReadEvent blocks until the next key event. Non-key events (sync, axes)
// are consumed silently. After Close, a blocked ReadEvent returns an error.
type Device interface {
	Name() string
	Path() string
	KeyCodes() ([]uint16, error)
	ReadEvent() (ButtonEvent, error)
	Close() error
}
