package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-chatter/config. Every key can also
be set with an environment variable: CHATTER_ followed by the key in upper
case with dashes as underscores (upload-url: CHATTER_UPLOAD_URL). The file
wins over the environment.

Supported settings:
` + keyHelp(),
		Example: `  chatter config set upload-url http://localhost:5678/webhook/chat
  chatter config get button-quit
  chatter config list
  chatter config unset video-dir`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))
	cmd.AddCommand(configUnsetCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is validated before it is written.`,
		Example: `  chatter config set button-start-stop BTN_A
  chatter config set video-dir ~/chatter/videos`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get the effective value of a key.

Prints the value from the config file, the environment or the default.`,
		Example: `  chatter config get upload-url`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List every key with its effective value and where it comes from.`,
		Example: `  chatter config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// configUnsetCmd creates the "config unset" subcommand.
func configUnsetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "unset <key>",
		Short:   "Remove a value from the config file",
		Long:    `Remove a key from the config file so the environment or default applies.`,
		Example: `  chatter config unset controller-path`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigUnset(env, args[0])
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if err := config.Save(key, value); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigUnset handles the "config unset" command.
func runConfigUnset(env *Env, key string) error {
	if err := config.Unset(key); err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Unset %s\n", key)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !slices.Contains(config.Keys(), key) {
		return fmt.Errorf("%w: %q", config.ErrUnknownKey, key)
	}

	file, err := config.List()
	if err != nil {
		return err
	}
	for _, e := range config.Effective(file, env.Getenv) {
		if e.Key == key && e.Value != "" {
			fmt.Fprintln(env.Stdout, e.Value)
		}
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	file, err := config.List()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	for _, e := range config.Effective(file, env.Getenv) {
		fmt.Fprintf(tw, "%s=%s\t(%s)\n", e.Key, e.Value, e.Source)
	}
	return tw.Flush()
}

// keyHelp lists every key with its description and default.
func keyHelp() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, k := range config.Keys() {
		def := config.Default(k)
		if def == "" {
			def = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t(default: %s)\n", k, config.Help(k), def)
	}
	_ = tw.Flush()
	return b.String()
}
