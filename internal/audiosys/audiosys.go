// Package audiosys shares one PortAudio initialization between the
// capture and playback paths.
package audiosys

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// System reference-counts PortAudio initialization. The library is
// initialized on the first Acquire and terminated on the last Release.
type System struct {
	mu       sync.Mutex
	refCount int

	initialize func() error
	terminate  func() error
}

// New returns a System over the given init and terminate functions.
func New(initialize, terminate func() error) *System {
	return &System{initialize: initialize, terminate: terminate}
}

var (
	defaultSystem *System
	defaultOnce   sync.Once
)

// Default returns the process-wide System backed by PortAudio.
func Default() *System {
	defaultOnce.Do(func() {
		defaultSystem = New(portaudio.Initialize, portaudio.Terminate)
	})
	return defaultSystem
}

// Acquire initializes the library if needed and takes a reference.
func (s *System) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refCount == 0 {
		if err := s.initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
	}
	s.refCount++
	return nil
}

// Release drops a reference and terminates the library on the last one.
// Extra releases are ignored.
func (s *System) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refCount == 0 {
		return nil
	}
	s.refCount--
	if s.refCount == 0 {
		if err := s.terminate(); err != nil {
			return fmt.Errorf("terminate portaudio: %w", err)
		}
	}
	return nil
}

// Refs returns the current reference count.
func (s *System) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refCount
}
