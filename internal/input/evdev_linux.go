//go:build linux

package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// evdevDevice reads key events from an evdev node.
//
// go-evdev puts its descriptor in blocking mode, so a ReadOne in progress
// survives Close. Events are therefore read from a second descriptor that
// the runtime poller owns: closing it wakes a pending read.
type evdevDevice struct {
	events *os.File
	path   string
	name   string
	codes  []uint16

	closeOnce sync.Once
	closeErr  error
}

var _ Device = (*evdevDevice)(nil)

func listEvdevPaths() ([]string, error) {
	nodes, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(nodes))
	for _, n := range nodes {
		paths = append(paths, n.Path)
	}
	return paths, nil
}

func openEvdev(path string) (Device, error) {
	meta, err := evdev.OpenWithFlags(path, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	name, err := meta.Name()
	if err != nil {
		name = path
	}
	evCodes := meta.CapableEvents(evdev.EvType(evdev.EV_KEY))
	_ = meta.Close()

	codes := make([]uint16, 0, len(evCodes))
	for _, c := range evCodes {
		codes = append(codes, uint16(c))
	}

	f, err := os.OpenFile(path, os.O_RDONLY, 0) // #nosec G304 -- evdev node from the registry
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return newEvdevDevice(f, path, name, codes)
}

// newEvdevDevice wraps an event stream. f must be registered with the
// runtime poller; otherwise Close could not interrupt ReadEvent.
func newEvdevDevice(f *os.File, path, name string, codes []uint16) (*evdevDevice, error) {
	// Only pollable files support deadlines.
	if err := f.SetReadDeadline(time.Time{}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: event stream not pollable: %w", path, err)
	}
	return &evdevDevice{events: f, path: path, name: name, codes: codes}, nil
}

func (d *evdevDevice) Name() string { return d.name }
func (d *evdevDevice) Path() string { return d.path }

func (d *evdevDevice) KeyCodes() ([]uint16, error) {
	return d.codes, nil
}

func (d *evdevDevice) ReadEvent() (ButtonEvent, error) {
	for {
		var ev evdev.InputEvent
		if err := binary.Read(d.events, binary.LittleEndian, &ev); err != nil {
			if errors.Is(err, os.ErrClosed) {
				return ButtonEvent{}, ErrClosed
			}
			return ButtonEvent{}, fmt.Errorf("read %s: %w", d.path, err)
		}
		if ev.Type != evdev.EvType(evdev.EV_KEY) {
			continue
		}
		return ButtonEvent{
			Source: d.path,
			Code:   uint16(ev.Code),
			Edge:   Edge(ev.Value),
			Time:   time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*int64(time.Microsecond)),
		}, nil
	}
}

// Close releases the event stream. A ReadEvent blocked on it returns
// ErrClosed.
func (d *evdevDevice) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.events.Close()
	})
	return d.closeErr
}
