// Package machine drives the appliance through its states:
//
//	IDLE -> LISTENING -> THINKING -> TALKING -> IDLE
//
// Button down edges are the only input. Upload and playback run on the
// goroutine that consumes events, so no press is acted on while the
// machine is thinking or talking. A quit press is checked once between
// the two phases; any other press seen there is handled back in IDLE.
package machine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/player"
	"github.com/alnah/go-chatter/internal/upload"
)

// readerJoinTimeout bounds the wait for the event reader after the device
// is closed.
const readerJoinTimeout = time.Second

// Capturer starts and stops recordings.
type Capturer interface {
	Start() (*capture.Worker, error)
	Stop(w *capture.Worker, joinTimeout time.Duration) (*capture.Session, error)
}

var _ Capturer = (*capture.Coordinator)(nil)

// Observer is notified of each transition before the work of the entered
// state begins.
type Observer func(from, to State)

// Machine is the state machine. It is not safe for concurrent use; Run
// owns it for its whole duration.
type Machine struct {
	capturer        Capturer
	uploader        upload.Uploader
	player          player.AudioPlayer
	video           player.VideoSwitcher
	videos          Videos
	keymap          input.Keymap
	tempDir         string
	joinTimeout     time.Duration
	quitJoinTimeout time.Duration
	observers       []Observer
	logger          zerolog.Logger

	state  State
	worker *capture.Worker
	temps  []string
}

// Option configures a Machine.
type Option func(*Machine)

// WithKeymap sets the button bindings.
func WithKeymap(km input.Keymap) Option {
	return func(m *Machine) { m.keymap = km }
}

// WithVideo enables the background video.
func WithVideo(v player.VideoSwitcher, videos Videos) Option {
	return func(m *Machine) {
		m.video = v
		m.videos = videos
	}
}

// WithTempDir sets where clips are written.
func WithTempDir(dir string) Option {
	return func(m *Machine) {
		if dir != "" {
			m.tempDir = dir
		}
	}
}

// WithJoinTimeouts sets how long a stopping capture may take, on a normal
// stop and on quit.
func WithJoinTimeouts(stop, quit time.Duration) Option {
	return func(m *Machine) {
		if stop > 0 {
			m.joinTimeout = stop
		}
		if quit > 0 {
			m.quitJoinTimeout = quit
		}
	}
}

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = l.With().Str("component", "machine").Logger()
	}
}

// New creates a Machine in IDLE.
func New(c Capturer, u upload.Uploader, p player.AudioPlayer, opts ...Option) *Machine {
	m := &Machine{
		capturer:        c,
		uploader:        u,
		player:          p,
		keymap:          input.DefaultKeymap,
		tempDir:         os.TempDir(),
		joinTimeout:     capture.DefaultJoinTimeout,
		quitJoinTimeout: capture.DefaultQuitJoinTimeout,
		logger:          zerolog.Nop(),
		state:           Idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run consumes events from dev until quit, ctx cancellation or a
// controller failure. It takes ownership of dev and closes it before
// returning. Quit and cancellation return nil; a failing controller
// returns ErrControllerLost.
func (m *Machine) Run(ctx context.Context, dev input.Device) error {
	events := make(chan input.ButtonEvent)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	readerDone := make(chan struct{})

	go m.read(dev, events, readErr, stop, readerDone)

	defer func() {
		m.shutdown()
		close(stop)
		if err := dev.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("closing controller")
		}
		select {
		case <-readerDone:
		case <-time.After(readerJoinTimeout):
			m.logger.Warn().Msg("controller reader did not exit")
		}
	}()

	m.showVideo(m.state)
	m.logger.Info().Str("controller", dev.Name()).Msg("ready")

	var pending *input.ButtonEvent
	for {
		var ev input.ButtonEvent
		if pending != nil {
			ev, pending = *pending, nil
		} else {
			select {
			case <-ctx.Done():
				m.logger.Info().Msg("stopping on signal")
				return nil
			case err := <-readErr:
				m.logger.Error().Err(err).Msg("controller read failed")
				return fmt.Errorf("%w: %w", ErrControllerLost, err)
			case ev = <-events:
			}
		}

		switch m.keymap.Action(ev.Code) {
		case input.ActionQuit:
			m.logger.Info().Str("state", m.state.String()).Msg("quit pressed")
			return nil
		case input.ActionStartStop:
			if m.state == Idle {
				m.startListening()
				continue
			}
			quit, next := m.respond(ctx, events)
			if quit {
				return nil
			}
			pending = next
		}
	}
}

// read forwards mapped down edges from dev until stop is closed or a read
// fails.
func (m *Machine) read(dev input.Device, events chan<- input.ButtonEvent, errs chan<- error, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			select {
			case <-stop:
			default:
				errs <- err
			}
			return
		}
		if !ev.IsDown() || m.keymap.Action(ev.Code) == input.ActionNone {
			continue
		}
		select {
		case events <- ev:
		case <-stop:
			return
		}
	}
}

// startListening handles IDLE + start/stop. A capture that cannot start
// leaves the machine in IDLE.
func (m *Machine) startListening() {
	w, err := m.capturer.Start()
	if err != nil {
		m.logger.Error().Err(err).Msg("could not start recording")
		return
	}
	m.worker = w
	m.transition(Listening)
}

// respond handles LISTENING + start/stop through THINKING and TALKING back
// to IDLE. It reports whether a quit was requested, and returns a non-quit
// press seen between the two phases.
func (m *Machine) respond(ctx context.Context, events <-chan input.ButtonEvent) (bool, *input.ButtonEvent) {
	m.transition(Thinking)

	w := m.worker
	m.worker = nil
	sess, err := m.capturer.Stop(w, m.joinTimeout)
	if err != nil {
		m.logFailure(err, "recording failed")
		m.transition(Idle)
		return false, nil
	}

	answer, err := m.exchange(ctx, sess)
	sess.Release()
	if err != nil {
		m.cleanup()
		if ctx.Err() != nil {
			return true, nil
		}
		m.logFailure(err, "no answer")
		m.transition(Idle)
		return false, nil
	}

	var pending *input.ButtonEvent
	select {
	case ev := <-events:
		if m.keymap.Action(ev.Code) == input.ActionQuit {
			m.logger.Info().Msg("quit pressed while thinking")
			m.cleanup()
			return true, nil
		}
		pending = &ev
	default:
	}
	if ctx.Err() != nil {
		m.cleanup()
		return true, nil
	}

	m.transition(Talking)
	if err := m.player.Play(ctx, answer); err != nil {
		m.logFailure(err, "playback failed")
	}
	m.cleanup()

	if ctx.Err() != nil {
		return true, nil
	}
	m.transition(Idle)
	return false, pending
}

// exchange persists the session, uploads it and writes the answer to a
// temp file whose path it returns.
func (m *Machine) exchange(ctx context.Context, sess *capture.Session) (string, error) {
	id := sess.ID.String()
	clip := filepath.Join(m.tempDir, "chatter-"+id+".wav")
	m.temps = append(m.temps, clip)

	if err := sess.WriteWAV(clip); err != nil {
		return "", fmt.Errorf("save recording: %w", err)
	}
	// #nosec G304 -- clip is built from the configured temp dir
	data, err := os.ReadFile(clip)
	if err != nil {
		return "", fmt.Errorf("read recording: %w", err)
	}
	if len(data) <= capture.WAVHeaderSize {
		return "", capture.ErrEmptyCapture
	}

	m.logger.Info().
		Str("session", id).
		Dur("duration", sess.Duration()).
		Int("bytes", len(data)).
		Msg("uploading recording")

	resp, err := m.uploader.Upload(ctx, data, upload.ContentTypeWAV)
	if err != nil {
		return "", err
	}

	answer := filepath.Join(m.tempDir, "chatter-"+id+"-response"+ResponseExt(resp))
	m.temps = append(m.temps, answer)
	if err := os.WriteFile(answer, resp, 0o600); err != nil {
		return "", fmt.Errorf("save answer: %w", err)
	}
	return answer, nil
}

// transition moves to the given state, notifies observers and switches the
// video.
func (m *Machine) transition(to State) {
	from := m.state
	m.state = to
	m.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("state")
	for _, o := range m.observers {
		o(from, to)
	}
	m.showVideo(to)
}

func (m *Machine) showVideo(s State) {
	if m.video == nil {
		return
	}
	path := m.videos.For(s)
	if path == "" {
		return
	}
	if err := m.video.Switch(path); err != nil {
		m.logger.Warn().Err(err).Str("state", s.String()).Msg("video not shown")
	}
}

// shutdown stops an active capture, the video and removes temp files.
func (m *Machine) shutdown() {
	if m.worker != nil {
		if _, err := m.capturer.Stop(m.worker, m.quitJoinTimeout); err != nil &&
			!errors.Is(err, capture.ErrEmptyCapture) {
			m.logger.Warn().Err(err).Msg("discarding recording")
		}
		m.worker = nil
	}
	if m.video != nil {
		if err := m.video.Stop(); err != nil {
			m.logger.Warn().Err(err).Msg("stopping video")
		}
	}
	m.cleanup()
}

// cleanup removes the temp files of the current cycle.
func (m *Machine) cleanup() {
	for _, p := range m.temps {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn().Err(err).Str("path", p).Msg("could not remove temp file")
		}
	}
	m.temps = m.temps[:0]
}

func (m *Machine) logFailure(err error, msg string) {
	ev := m.logger.Error()
	if errors.Is(err, capture.ErrEmptyCapture) {
		ev = m.logger.Warn()
	}
	ev.Err(err).Str("state", m.state.String()).Msg(msg)
}

// ResponseExt returns the file extension matching the answer payload.
func ResponseExt(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ".wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	default:
		return ".mp3"
	}
}
