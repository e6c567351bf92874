package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/controller"
	"github.com/alnah/go-chatter/internal/input"
)

// defaultWaitTimeout is how long wait-exit waits without a flag.
const defaultWaitTimeout = 60 * time.Second

// WaitExitCmd creates the wait-exit command.
func WaitExitCmd(env *Env) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait-exit",
		Short: "Wait for Enter or the quit button",
		Long: `Block until Enter is pressed on the terminal, the quit button is
pressed on a device that has it, or the timeout expires. Exits 0 in every
case, so shell wrappers can use it as a pause.`,
		Example: `  chatter wait-exit
  chatter wait-exit --timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWaitExit(cmd.Context(), env, timeout)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", defaultWaitTimeout, "Give up after this long")
	return cmd
}

// runWaitExit races the terminal against the first device able to emit
// the quit button.
func runWaitExit(ctx context.Context, env *Env, timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: --timeout must be positive, got %s", ErrInvalidDuration, timeout)
	}
	cfg, logger, err := loadSetup(env)
	if err != nil {
		return err
	}

	quit := cfg.Keymap.Quit
	fmt.Fprintf(env.Stderr, "Press Enter or %s to continue (timeout %s)...\n", input.ButtonName(quit), timeout)

	var candidates []input.Device
	if d, err := env.InputFactory.NewRegistry(cfg.ButtonReference, logger).WithButton(quit); err != nil {
		logger.Debug().Err(err).Msg("no device with the quit button")
	} else {
		candidates = append(candidates, d)
	}
	if d, err := env.InputFactory.OpenKeyboard(cfg.Keymap); err != nil {
		logger.Debug().Err(err).Msg("terminal not available")
	} else {
		candidates = append(candidates, d)
	}

	if len(candidates) == 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			fmt.Fprintln(env.Stderr, "Timed out.")
			return nil
		}
	}

	winner, err := controller.FirstPress(ctx, candidates, timeout, func(ev input.ButtonEvent) bool {
		return ev.IsDown() && (ev.Source == input.KeyboardPath || ev.Code == quit)
	})
	if err != nil {
		return err
	}
	if winner == nil {
		fmt.Fprintln(env.Stderr, "Timed out.")
		return nil
	}
	_ = winner.Close()
	return nil
}
