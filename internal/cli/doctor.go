package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/machine"
	"github.com/alnah/go-chatter/internal/player"
)

// DoctorCmd creates the doctor command.
func DoctorCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check players, backend and audio input",
		Long: `Resolve the audio and video player binaries, check the background
videos and the backend settings, and look for an audio input device.

Exits with code 3 when something needs fixing.`,
		Example: `  chatter doctor`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(env)
		},
	}
}

// doctorReport collects check results.
type doctorReport struct {
	tw       *tabwriter.Writer
	failures int
}

func (r *doctorReport) ok(what, detail string) {
	fmt.Fprintf(r.tw, "ok\t%s\t%s\n", what, detail)
}

func (r *doctorReport) fail(what string, err error) {
	r.failures++
	// Install help spans several lines; the table keeps the first.
	msg, help, _ := strings.Cut(err.Error(), "\n\n")
	fmt.Fprintf(r.tw, "FAIL\t%s\t%s\n", what, msg)
	if help != "" {
		for line := range strings.SplitSeq(help, "\n") {
			fmt.Fprintf(r.tw, "\t\t%s\n", line)
		}
	}
}

// runDoctor runs every check and reports all of them before failing.
func runDoctor(env *Env) error {
	cfg, _, err := loadSetup(env)
	if err != nil {
		return err
	}

	r := &doctorReport{tw: tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)}

	if cfg.Player == config.PlayerNative {
		r.ok("audio player", "native (PortAudio)")
	} else if argv, err := env.PlayerFactory.ResolveCommand(cfg.PlayerCommand, player.EnvPlayerPath); err != nil {
		r.fail("audio player", err)
	} else {
		r.ok("audio player", argv[0])
	}

	if cfg.VideoDir == "" {
		r.ok("video", "disabled (video-dir not set)")
	} else {
		if argv, err := env.PlayerFactory.ResolveCommand(cfg.VideoCommand, player.EnvVideoPlayerPath); err != nil {
			r.fail("video player", err)
		} else {
			r.ok("video player", argv[0])
		}
		videos := machine.VideosIn(cfg.VideoDir)
		for _, s := range []machine.State{machine.Idle, machine.Listening, machine.Thinking, machine.Talking} {
			p := videos.For(s)
			if _, err := os.Stat(p); err != nil {
				r.fail(s.String()+" video", fmt.Errorf("%w: %s", player.ErrVideoNotFound, p))
				continue
			}
			r.ok(s.String()+" video", p)
		}
	}

	switch {
	case cfg.Backend == config.BackendOpenAI && env.Getenv(EnvOpenAIKey) == "":
		r.fail("backend", ErrAPIKeyMissing)
	case cfg.Backend == config.BackendOpenAI:
		r.ok("backend", "openai ("+cfg.OpenAIChatModel+")")
	case cfg.UploadURL == "":
		r.fail("backend", ErrUploadURLMissing)
	default:
		r.ok("backend", "webhook "+cfg.UploadURL)
	}

	devs, err := env.AudioDevices.ListInputDevices(cfg.Format.Channels)
	switch {
	case err != nil:
		r.fail("audio input", err)
	case len(devs) == 0:
		r.fail("audio input", errors.New("no audio input device found"))
	default:
		r.ok("audio input", fmt.Sprintf("%d device(s)", len(devs)))
	}

	if err := r.tw.Flush(); err != nil {
		return err
	}
	if r.failures > 0 {
		return fmt.Errorf("%w: %d problem(s)", ErrChecksFailed, r.failures)
	}
	return nil
}
