// Package player plays answers and loops the background state video.
//
// Audio playback is synchronous: Play returns when the clip has finished.
// Video playback is a supervised child process owned by a Looper; at most
// one exists at a time and every exit path terminates and reaps it.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/apierr"
)

// AudioPlayer plays an audio file and blocks until playback ends.
type AudioPlayer interface {
	Play(ctx context.Context, path string) error
}

// stderrExcerptLimit caps the player output kept in errors.
const stderrExcerptLimit = 500

// Compile-time interface compliance checks.
var (
	_ AudioPlayer = (*External)(nil)
	_ AudioPlayer = (*Native)(nil)
)

// External plays audio through an external command such as ffplay or
// mpg123.
type External struct {
	argv   []string
	stat   statFn
	goos   string
	logger zerolog.Logger
}

// ExternalOption configures an External player.
type ExternalOption func(*External)

// WithExternalLogger sets the logger.
func WithExternalLogger(l zerolog.Logger) ExternalOption {
	return func(e *External) {
		e.logger = l.With().Str("component", "player").Logger()
	}
}

// NewExternal creates a player running argv followed by the file path.
// A nil argv uses DefaultAudioCommand.
func NewExternal(argv []string, opts ...ExternalOption) *External {
	if len(argv) == 0 {
		argv = DefaultAudioCommand
	}
	e := &External{
		argv:   append([]string(nil), argv...),
		stat:   os.Stat,
		goos:   runtime.GOOS,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Command returns the configured command line.
func (e *External) Command() []string {
	return append([]string(nil), e.argv...)
}

// Play runs the player on path and waits for it to exit.
func (e *External) Play(ctx context.Context, path string) error {
	if err := checkAudioFile(e.stat, path); err != nil {
		return err
	}

	args := append(append([]string(nil), e.argv[1:]...), path)
	// #nosec G204 -- command comes from local configuration
	cmd := exec.CommandContext(ctx, e.argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug().Strs("argv", cmd.Args).Msg("playing")
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s\n\n%s", ErrPlayerMissing, e.argv[0], InstallInstructions(e.argv[0], e.goos))
		}
		if ctx.Err() != nil {
			return fmt.Errorf("playback interrupted: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d: %s",
				ErrPlaybackFailed, e.argv[0], exitErr.ExitCode(),
				apierr.Excerpt(stderr.Bytes(), stderrExcerptLimit))
		}
		return fmt.Errorf("%w: %w", ErrPlaybackFailed, err)
	}

	e.logger.Debug().Dur("elapsed", time.Since(start)).Msg("playback finished")
	return nil
}

// checkAudioFile rejects missing and empty files.
func checkAudioFile(stat statFn, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrNoAudio)
	}
	info, err := stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoAudio, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrNoAudio, path)
	}
	return nil
}
