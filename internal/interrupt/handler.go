// Package interrupt turns SIGINT/SIGTERM into a context cancellation.
//
// The first signal cancels the context so the appliance loop can stop its
// recording, video and temp files. A second signal within the window
// exits immediately with code 130.
package interrupt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// forceWindow is how long after a signal a second one forces exit.
const forceWindow = 2 * time.Second

// ErrInterrupted is the cancellation cause of the handler context.
var ErrInterrupted = errors.New("interrupted")

// Handler cancels a context on the first signal and force-exits on a
// second one within forceWindow.
type Handler struct {
	cancel context.CancelCauseFunc
	quit   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	last time.Time // time of the latest counted signal
	sig  os.Signal // first signal received, nil if none

	signals <-chan os.Signal
	exit    func(int)
	now     func() time.Time
	stderr  io.Writer
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignals reads signals from ch instead of the process.
func WithSignals(ch <-chan os.Signal) Option {
	return func(h *Handler) { h.signals = ch }
}

// WithExit replaces os.Exit for the forced exit.
func WithExit(fn func(int)) Option {
	return func(h *Handler) { h.exit = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(h *Handler) { h.now = fn }
}

// WithStderr sets the writer for user-facing messages.
// It must be safe for concurrent writes.
func WithStderr(w io.Writer) Option {
	return func(h *Handler) { h.stderr = w }
}

// NewHandler listens for SIGINT/SIGTERM on the process.
// The returned context is canceled on the first signal.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return New(parent, WithSignals(ch))
}

// New builds a Handler from options. Without WithSignals it never sees a
// signal and only Stop or the parent cancel its context.
func New(parent context.Context, opts ...Option) (*Handler, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	h := &Handler{
		cancel: cancel,
		quit:   make(chan struct{}),
		exit:   os.Exit,
		now:    time.Now,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.signals != nil {
		go h.loop()
	}
	return h, ctx
}

func (h *Handler) loop() {
	for {
		select {
		case <-h.quit:
			return
		case sig, ok := <-h.signals:
			if !ok {
				return
			}
			if h.receive(sig) {
				fmt.Fprintln(h.stderr, "\nAborted.")
				h.exit(ExitInterrupt)
				return
			}
		}
	}
}

// receive records sig and reports whether it forces exit.
func (h *Handler) receive(sig os.Signal) bool {
	h.mu.Lock()
	select {
	case <-h.quit:
		h.mu.Unlock()
		return false
	default:
	}
	now := h.now()
	force := h.sig != nil && now.Sub(h.last) <= forceWindow
	if h.sig == nil {
		h.sig = sig
	}
	h.last = now
	h.mu.Unlock()

	if !force {
		h.cancel(fmt.Errorf("%w by %v", ErrInterrupted, sig))
		fmt.Fprintln(h.stderr, "\nStopping... press Ctrl+C again to force quit.")
	}
	return force
}

// WasInterrupted reports whether a signal was received.
func (h *Handler) WasInterrupted() bool {
	return h.Signal() != nil
}

// Signal returns the first signal received, or nil.
func (h *Handler) Signal() os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sig
}

// Stop releases the signal handlers and cancels the context.
// Later signals are ignored. Safe to call more than once.
func (h *Handler) Stop() {
	h.once.Do(func() {
		h.mu.Lock()
		close(h.quit)
		h.mu.Unlock()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
		h.cancel(context.Canceled)
	})
}
