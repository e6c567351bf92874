package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/input"
)

// DevicesCmd creates the devices command.
// Lists input devices usable as controllers and audio capture devices.
func DevicesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List controllers and audio input devices",
		Long: `List input devices with the buttons they can emit, and audio capture
devices with the sample rates they accept.

Use a controller path with "config set controller-path" and an audio index
with "config set input-device".`,
		Example: `  chatter devices`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListDevices(env)
		},
	}
}

// runListDevices prints both device listings.
func runListDevices(env *Env) error {
	cfg, logger, err := loadSetup(env)
	if err != nil {
		return err
	}

	infos, err := env.InputFactory.NewRegistry(cfg.ButtonReference, logger).Describe()
	switch {
	case errors.Is(err, input.ErrUnsupportedPlatform):
		fmt.Fprintln(env.Stdout, "Input devices: not available on this platform (use controller = keyboard).")
	case err != nil:
		return err
	default:
		printInputDevices(env, infos)
	}
	fmt.Fprintln(env.Stdout)

	audio, err := env.AudioDevices.ListInputDevices(cfg.Format.Channels)
	if err != nil {
		return fmt.Errorf("list audio devices: %w", err)
	}
	if len(audio) == 0 {
		fmt.Fprintln(env.Stdout, "No audio input devices found.")
		return nil
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tAUDIO INPUT\tCHANNELS\tRATES\t")
	for _, d := range audio {
		name := d.Name
		if d.IsDefault {
			name += " (default)"
		}
		rates := make([]string, len(d.SupportedRates))
		for i, r := range d.SupportedRates {
			rates[i] = fmt.Sprint(r)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t\n", d.Index, name, d.MaxInputChannels, strings.Join(rates, ","))
	}
	return tw.Flush()
}

func printInputDevices(env *Env, infos []input.DeviceInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(env.Stdout, "No input devices found (check read access to /dev/input).")
		return
	}
	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tCONTROLLER\tBUTTONS\t")
	for _, d := range infos {
		capable := "no"
		if d.ButtonCapable {
			capable = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", d.Path, d.Name, capable, strings.Join(d.Buttons, ","))
	}
	_ = tw.Flush()
}
