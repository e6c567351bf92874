package player

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/apierr"
)

// DefaultStopGrace is how long a video process gets to exit after SIGTERM
// before it is killed.
const DefaultStopGrace = 500 * time.Millisecond

// VideoSwitcher shows one looping video at a time.
type VideoSwitcher interface {
	Switch(path string) error
	Stop() error
}

var _ VideoSwitcher = (*Looper)(nil)

// Looper supervises the background video process. It owns at most one
// child process; Switch and Stop terminate and reap it before returning.
type Looper struct {
	argv   []string
	stat   statFn
	grace  time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	current string
	proc    *videoProcess
}

// videoProcess is a started command and its exit notification.
type videoProcess struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
	done   chan struct{}
	err    error
}

// LooperOption configures a Looper.
type LooperOption func(*Looper)

// WithStopGrace sets the SIGTERM grace period.
func WithStopGrace(d time.Duration) LooperOption {
	return func(l *Looper) {
		if d > 0 {
			l.grace = d
		}
	}
}

// WithLooperLogger sets the logger.
func WithLooperLogger(lg zerolog.Logger) LooperOption {
	return func(l *Looper) {
		l.logger = lg.With().Str("component", "video").Logger()
	}
}

// NewLooper creates a Looper running argv followed by the video path.
// A nil argv uses DefaultVideoCommand.
func NewLooper(argv []string, opts ...LooperOption) *Looper {
	if len(argv) == 0 {
		argv = DefaultVideoCommand
	}
	l := &Looper{
		argv:   append([]string(nil), argv...),
		stat:   os.Stat,
		grace:  DefaultStopGrace,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Current returns the path of the running video, or "" when none runs.
func (l *Looper) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.proc == nil || l.proc.exited() {
		return ""
	}
	return l.current
}

// Switch replaces the running video with path. Switching to the video
// already running is a no-op. The previous process is stopped before the
// new one is launched.
func (l *Looper) Switch(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.proc != nil && l.current == path && !l.proc.exited() {
		return nil
	}
	l.stopLocked()

	if _, err := l.stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, path)
	}

	args := append(append([]string(nil), l.argv[1:]...), path)
	// #nosec G204 -- command comes from local configuration
	cmd := exec.Command(l.argv[0], args...)
	p := &videoProcess{cmd: cmd, done: make(chan struct{})}
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, l.argv[0])
		}
		return fmt.Errorf("start video player: %w", err)
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	l.proc = p
	l.current = path
	l.logger.Debug().Str("video", path).Int("pid", cmd.Process.Pid).Msg("video started")
	return nil
}

// Stop terminates the running video, if any, and waits for it to exit.
func (l *Looper) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	return nil
}

func (l *Looper) stopLocked() {
	p := l.proc
	l.proc = nil
	l.current = ""
	if p == nil {
		return
	}

	if p.exited() {
		if p.err != nil {
			l.logger.Warn().Err(p.err).
				Str("stderr", apierr.Excerpt(p.stderr.Bytes(), stderrExcerptLimit)).
				Msg("video player had exited")
		}
		return
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	timer := time.NewTimer(l.grace)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		l.logger.Warn().Dur("grace", l.grace).Msg("video player ignored SIGTERM, killing")
		_ = p.cmd.Process.Kill()
		<-p.done
	}
}

func (p *videoProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
