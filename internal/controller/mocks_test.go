package controller_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-chatter/internal/input"
)

// ---------------------------------------------------------------------------
// Fake Device - events are pushed by the test
// ---------------------------------------------------------------------------

type fakeDevice struct {
	name   string
	path   string
	events chan input.ButtonEvent
	closed chan struct{}

	once       sync.Once
	mu         sync.Mutex
	closeCalls int
}

var _ input.Device = (*fakeDevice)(nil)

func newFakeDevice(path string) *fakeDevice {
	return &fakeDevice{
		name:   "fake " + path,
		path:   path,
		events: make(chan input.ButtonEvent, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeDevice) Name() string { return f.name }
func (f *fakeDevice) Path() string { return f.path }

func (f *fakeDevice) KeyCodes() ([]uint16, error) {
	return []uint16{input.BtnSouth, input.BtnStart}, nil
}

func (f *fakeDevice) ReadEvent() (input.ButtonEvent, error) {
	select {
	case <-f.closed:
		return input.ButtonEvent{}, input.ErrClosed
	default:
	}
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return input.ButtonEvent{}, input.ErrClosed
	}
}

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeDevice) CloseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeDevice) press(code uint16, edge input.Edge) {
	f.events <- input.ButtonEvent{Source: f.path, Code: code, Edge: edge, Time: time.Now()}
}

// ---------------------------------------------------------------------------
// Stubborn Device - Close does not wake ReadEvent
// ---------------------------------------------------------------------------

// stubbornDevice models a node whose blocking read survives Close. Its
// reader is released only at test cleanup.
type stubbornDevice struct {
	*fakeDevice
	release chan struct{}
}

func newStubbornDevice(t *testing.T, path string) *stubbornDevice {
	t.Helper()
	d := &stubbornDevice{fakeDevice: newFakeDevice(path), release: make(chan struct{})}
	t.Cleanup(func() { close(d.release) })
	return d
}

func (d *stubbornDevice) ReadEvent() (input.ButtonEvent, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case <-d.release:
		return input.ButtonEvent{}, input.ErrClosed
	}
}

// ---------------------------------------------------------------------------
// Mock Registry
// ---------------------------------------------------------------------------

type mockRegistry struct {
	OpenFunc          func(path string) (input.Device, error)
	ButtonCapableFunc func() ([]input.Device, error)

	mu                 sync.Mutex
	openCalls          []string
	buttonCapableCalls int
}

func (m *mockRegistry) Open(path string) (input.Device, error) {
	m.mu.Lock()
	m.openCalls = append(m.openCalls, path)
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(path)
	}
	return nil, errors.New("no such device")
}

func (m *mockRegistry) ButtonCapable() ([]input.Device, error) {
	m.mu.Lock()
	m.buttonCapableCalls++
	m.mu.Unlock()

	if m.ButtonCapableFunc != nil {
		return m.ButtonCapableFunc()
	}
	return nil, nil
}

func (m *mockRegistry) ButtonCapableCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buttonCapableCalls
}

// candidates returns a ButtonCapableFunc yielding the given devices.
func candidates(devs ...input.Device) func() ([]input.Device, error) {
	return func() ([]input.Device, error) {
		return devs, nil
	}
}
