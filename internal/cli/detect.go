package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/controller"
)

// DetectCmd creates the detect command.
func DetectCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Find the controller by pressing one of its buttons",
		Long: `Wait for a button press on any button-capable input device and print
the path of the device it came from.

Pin the result so run skips detection:
  chatter config set controller-path <path>`,
		Example: `  chatter detect
  chatter config set controller-path "$(chatter detect)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.Context(), env)
		},
	}
}

// runDetect runs the press-any-button race alone.
func runDetect(ctx context.Context, env *Env) error {
	cfg, logger, err := loadSetup(env)
	if err != nil {
		return err
	}

	reg := env.InputFactory.NewRegistry(cfg.ButtonReference, logger)
	sel := controller.NewSelector([]controller.Strategy{newRace(env, cfg, reg, logger)}, controller.WithLogger(logger))
	dev, err := sel.Select(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	fmt.Fprintln(env.Stdout, dev.Path())
	fmt.Fprintf(env.Stderr, "Selected %s. Pin it with:\n  chatter config set %s %s\n",
		dev.Name(), config.KeyControllerPath, dev.Path())
	return nil
}
