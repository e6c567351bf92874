package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/cli"
	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/controller"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/interrupt"
	"github.com/alnah/go-chatter/internal/upload"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitSetup     = 3
	ExitInterrupt = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels, a second one within the window exits.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "chatter",
		Short:   "Push-to-talk voice loop driven by a game controller",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.DetectCmd(env))
	rootCmd.AddCommand(cli.DevicesCmd(env))
	rootCmd.AddCommand(cli.WaitExitCmd(env))
	rootCmd.AddCommand(cli.DoctorCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	err := rootCmd.ExecuteContext(ctx)
	interrupted := handler.WasInterrupted()
	handler.Stop()

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
	if interrupted {
		os.Exit(ExitInterrupt)
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Cobra doesn't expose typed errors, so we check for known error message patterns.
	if isCobraUsageError(err) || errors.Is(err, cli.ErrInvalidDuration) ||
		errors.Is(err, config.ErrUnknownKey) {
		return ExitUsage
	}

	if errors.Is(err, controller.ErrNoDeviceFound) || errors.Is(err, input.ErrUnsupportedPlatform) ||
		errors.Is(err, cli.ErrConfig) || errors.Is(err, config.ErrInvalid) ||
		errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, cli.ErrUploadURLMissing) ||
		errors.Is(err, upload.ErrInvalidURL) || errors.Is(err, capture.ErrInvalidFormat) ||
		errors.Is(err, cli.ErrChecksFailed) {
		return ExitSetup
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"unknown command",           // Subcommand doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
