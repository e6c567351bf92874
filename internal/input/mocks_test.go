package input_test

import (
	"errors"
	"sync"

	"github.com/alnah/go-chatter/internal/input"
)

// ---------------------------------------------------------------------------
// Mock Device
// ---------------------------------------------------------------------------

type mockDevice struct {
	name     string
	path     string
	codes    []uint16
	probeErr error

	mu         sync.Mutex
	closeCalls int
}

var _ input.Device = (*mockDevice)(nil)

func (m *mockDevice) Name() string { return m.name }
func (m *mockDevice) Path() string { return m.path }

func (m *mockDevice) KeyCodes() ([]uint16, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.codes, nil
}

func (m *mockDevice) ReadEvent() (input.ButtonEvent, error) {
	return input.ButtonEvent{}, errors.New("not readable")
}

func (m *mockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return nil
}

func (m *mockDevice) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// fakeNodes builds list/open functions over a fixed set of devices.
// Paths present in failing fail to open.
func fakeNodes(devices []*mockDevice, failing ...string) (func() ([]string, error), func(string) (input.Device, error)) {
	byPath := make(map[string]*mockDevice)
	var paths []string
	for _, d := range devices {
		byPath[d.path] = d
		paths = append(paths, d.path)
	}
	paths = append(paths, failing...)

	list := func() ([]string, error) { return paths, nil }
	open := func(p string) (input.Device, error) {
		d, ok := byPath[p]
		if !ok {
			return nil, errors.New("permission denied")
		}
		return d, nil
	}
	return list, open
}
