// Package capture records microphone audio on a background worker.
//
// A Coordinator runs at most one worker at a time. Start opens the source
// and spawns the worker; Stop signals it, joins it with a timeout, and only
// then hands the buffered audio to the caller.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Default timeouts for joining a worker.
const (
	DefaultJoinTimeout     = 5 * time.Second
	DefaultQuitJoinTimeout = 2 * time.Second
)

// DefaultMaxReadErrors is how many consecutive non-overflow read errors end
// a worker.
const DefaultMaxReadErrors = 5

// Worker is the handle for one running capture.
type Worker struct {
	session *Session
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool

	// err is written by the worker goroutine before done is closed.
	err error
}

// ID returns the session id of the capture.
func (w *Worker) ID() uuid.UUID {
	return w.session.ID
}

// Coordinator owns the capture worker lifecycle.
type Coordinator struct {
	opener        Opener
	format        Format
	maxReadErrors int
	logger        zerolog.Logger
	now           func() time.Time

	mu     sync.Mutex
	active *Worker
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMaxReadErrors sets how many consecutive read errors end a worker.
func WithMaxReadErrors(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxReadErrors = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l.With().Str("component", "capture").Logger()
	}
}

// WithClock sets the time source for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator creates a Coordinator reading f from opener.
func NewCoordinator(opener Opener, f Format, opts ...Option) (*Coordinator, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		opener:        opener,
		format:        f,
		maxReadErrors: DefaultMaxReadErrors,
		logger:        zerolog.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Format returns the capture format.
func (c *Coordinator) Format() Format {
	return c.format
}

// Active reports whether a worker is running.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start opens the source and spawns a worker with a fresh stop signal.
// The source is opened before Start returns, so device errors surface
// here as ErrStart.
func (c *Coordinator) Start() (*Worker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrCaptureActive
	}

	src, err := c.opener.Open(c.format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		session: newSession(c.format, c.now()),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.active = w

	c.logger.Debug().Str("session", w.ID().String()).Stringer("format", c.format).Msg("capture started")
	go c.run(ctx, w, src)
	return w, nil
}

// run is the worker loop. The source is closed before done is closed.
func (c *Coordinator) run(ctx context.Context, w *Worker, src Source) {
	defer close(w.done)
	defer func() {
		if err := src.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("closing audio source")
		}
	}()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := src.Read()
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, ErrOverflow):
			failures = 0
			c.logger.Warn().Msg("input overflow, samples dropped")
		default:
			failures++
			c.logger.Warn().Err(err).Int("consecutive", failures).Msg("audio read failed")
			if failures >= c.maxReadErrors {
				w.err = err
				return
			}
			continue
		}

		if len(chunk) > 0 {
			w.session.chunks = append(w.session.chunks, chunk)
		}
	}
}

// Stop signals w, waits up to joinTimeout for it to exit, then returns its
// session. On timeout the worker is abandoned and ErrStopTimeout returned;
// the coordinator no longer counts it as active.
func (c *Coordinator) Stop(w *Worker, joinTimeout time.Duration) (*Session, error) {
	if w == nil || !w.stopped.CompareAndSwap(false, true) {
		return nil, ErrNotActive
	}
	defer c.release(w)

	w.cancel()

	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-timer.C:
		c.logger.Error().
			Str("session", w.ID().String()).
			Dur("timeout", joinTimeout).
			Msg("capture worker did not exit, abandoning it")
		return nil, fmt.Errorf("%w (waited %s)", ErrStopTimeout, joinTimeout)
	}

	s := w.session
	s.StoppedAt = c.now()

	if w.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerFailed, w.err)
	}
	if s.NumChunks() == 0 {
		return nil, ErrEmptyCapture
	}

	c.logger.Debug().
		Str("session", s.ID.String()).
		Int("chunks", s.NumChunks()).
		Int("bytes", s.Len()).
		Dur("duration", s.Duration()).
		Msg("capture stopped")
	return s, nil
}

func (c *Coordinator) release(w *Worker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == w {
		c.active = nil
	}
}
