package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/controller"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/logging"
	"github.com/alnah/go-chatter/internal/machine"
	"github.com/alnah/go-chatter/internal/player"
	"github.com/alnah/go-chatter/internal/upload"
)

// RunCmd creates the run command.
func RunCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the push-to-talk loop",
		Long: `Run the push-to-talk loop.

The controller is the configured controller-path, or the first device on
which a button is pressed. Press the start/stop button to record, press it
again to send the recording and hear the answer. The quit button or Ctrl+C
ends the loop.

Backgrounds idle.mp4, listening.mp4, thinking.mp4 and talking.mp4 are
looped from video-dir when it is set.`,
		Example: `  chatter run
  CHATTER_BACKEND=openai chatter run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), env)
		},
	}
}

// runRun builds every component, selects the controller and runs the
// state machine until quit.
func runRun(ctx context.Context, env *Env) error {
	cfg, logger, err := loadSetup(env)
	if err != nil {
		return err
	}

	uploader, err := newUploader(env, cfg, logger)
	if err != nil {
		return err
	}
	capturer, err := env.CaptureFactory.NewCapturer(cfg, logger)
	if err != nil {
		return fmt.Errorf("audio capture: %w", err)
	}
	audio := newAudioPlayer(env, cfg, logger)

	strategies := []controller.Strategy{}
	if cfg.Controller == config.ControllerKeyboard {
		strategies = append(strategies, &controller.Keyboard{Keymap: cfg.Keymap, Open: env.InputFactory.OpenKeyboard})
	} else {
		reg := env.InputFactory.NewRegistry(cfg.ButtonReference, logger)
		strategies = append(strategies,
			&controller.ConfiguredPath{Path: cfg.ControllerPath, Registry: reg, Logger: logger},
			newRace(env, cfg, reg, logger),
		)
	}
	dev, err := controller.NewSelector(strategies, controller.WithLogger(logger)).Select(ctx)
	if err != nil {
		return err
	}

	printControls(env.Stderr, cfg.Keymap, dev)

	opts := []machine.Option{
		machine.WithKeymap(cfg.Keymap),
		machine.WithTempDir(cfg.TempDir),
		machine.WithJoinTimeouts(cfg.JoinTimeout, cfg.QuitJoinTimeout),
		machine.WithLogger(logger),
	}
	if video := newVideo(env, cfg, logger); video != nil {
		opts = append(opts, machine.WithVideo(video, machine.VideosIn(cfg.VideoDir)))
	}

	if err := machine.New(capturer, uploader, audio, opts...).Run(ctx, dev); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Fprintln(env.Stderr, "Bye.")
	return nil
}

// loadSetup loads the configuration and builds the logger from it.
func loadSetup(env *Env) (config.Config, zerolog.Logger, error) {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("%w: %w", ErrConfig, err)
	}
	logger, err := logging.New(env.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg, logger, nil
}

func newRace(env *Env, cfg config.Config, reg controller.Registry, logger zerolog.Logger) *controller.Race {
	return &controller.Race{
		Registry: reg,
		Timeout:  cfg.DetectTimeout,
		Prompt:   env.Stderr,
		Logger:   logger.With().Str("component", "controller").Logger(),
	}
}

// newUploader returns the configured backend.
func newUploader(env *Env, cfg config.Config, logger zerolog.Logger) (upload.Uploader, error) {
	if cfg.Backend == config.BackendOpenAI {
		key := env.Getenv(EnvOpenAIKey)
		if key == "" {
			return nil, ErrAPIKeyMissing
		}
		return env.UploaderFactory.NewOpenAI(cfg, key, logger)
	}
	if cfg.UploadURL == "" {
		return nil, ErrUploadURLMissing
	}
	return env.UploaderFactory.NewWebhook(cfg, logger)
}

// newAudioPlayer returns the configured player. A player binary that
// cannot be resolved is only warned about: each playback then fails with
// install help and the loop goes on.
func newAudioPlayer(env *Env, cfg config.Config, logger zerolog.Logger) player.AudioPlayer {
	if cfg.Player == config.PlayerNative {
		return env.PlayerFactory.NewNative(logger)
	}
	argv, err := env.PlayerFactory.ResolveCommand(cfg.PlayerCommand, player.EnvPlayerPath)
	if err != nil {
		logger.Warn().Err(err).Msg("audio player not found, answers cannot be played")
		argv = cfg.PlayerCommand
	}
	return env.PlayerFactory.NewExternal(argv, logger)
}

// newVideo returns the background looper, or nil when video-dir is unset.
func newVideo(env *Env, cfg config.Config, logger zerolog.Logger) player.VideoSwitcher {
	if cfg.VideoDir == "" {
		return nil
	}
	argv, err := env.PlayerFactory.ResolveCommand(cfg.VideoCommand, player.EnvVideoPlayerPath)
	if err != nil {
		logger.Warn().Err(err).Msg("video player not found, backgrounds will not be shown")
		argv = cfg.VideoCommand
	}
	return env.PlayerFactory.NewLooper(argv, logger)
}

// printControls tells the user which buttons do what.
func printControls(w io.Writer, km input.Keymap, dev input.Device) {
	fmt.Fprintf(w, "Controller: %s (%s)\n", dev.Name(), dev.Path())
	if dev.Path() == input.KeyboardPath {
		fmt.Fprintln(w, "  Enter/Space  start / stop recording")
		fmt.Fprintln(w, "  q/Esc        quit")
		return
	}
	fmt.Fprintf(w, "  %-12s start / stop recording\n", input.ButtonName(km.StartStop))
	fmt.Fprintf(w, "  %-12s quit\n", input.ButtonName(km.Quit))
}
