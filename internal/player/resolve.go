package player

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Environment variables overriding the player binaries.
const (
	EnvPlayerPath      = "CHATTER_PLAYER_PATH"
	EnvVideoPlayerPath = "CHATTER_VIDEO_PLAYER_PATH"
)

// Default command lines. The file path is appended as the last argument.
var (
	DefaultAudioCommand = []string{"ffplay", "-autoexit", "-nodisp", "-loglevel", "error"}
	DefaultVideoCommand = []string{"cvlc", "--loop", "--fullscreen", "--no-video-title-show", "--quiet"}
)

// ---------------------------------------------------------------------------
// Resolver - testable binary resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver finds player binaries.
type Resolver struct {
	env  envProvider
	stat statFn
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithStat sets the stat function.
func WithStat(fn statFn) ResolverOption {
	return func(r *Resolver) { r.stat = fn }
}

// WithPlatform sets the target OS (for install instructions).
func WithPlatform(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		env:  osEnvProvider{},
		stat: os.Stat,
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds a binary using the following precedence:
//  1. envVar (error if set but invalid)
//  2. argv0 as an explicit path, when it contains a separator
//  3. System PATH
func (r *Resolver) Resolve(argv0, envVar string) (string, error) {
	if envVar != "" {
		if p := r.env.Getenv(envVar); p != "" {
			if _, err := r.stat(p); err != nil {
				return "", fmt.Errorf("%w: %s is set to %q but binary not found", ErrNotFound, envVar, p)
			}
			return p, nil
		}
	}

	if strings.ContainsRune(argv0, os.PathSeparator) {
		if _, err := r.stat(argv0); err != nil {
			return "", fmt.Errorf("%w: %s\n\n%s", ErrNotFound, argv0, InstallInstructions(argv0, r.goos))
		}
		return argv0, nil
	}

	p, err := r.env.LookPath(argv0)
	if err != nil {
		return "", fmt.Errorf("%w: %s\n\n%s", ErrNotFound, argv0, InstallInstructions(argv0, r.goos))
	}
	return p, nil
}

// ResolveCommand returns argv with its program replaced by the resolved path.
func (r *Resolver) ResolveCommand(argv []string, envVar string) ([]string, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	p, err := r.Resolve(argv[0], envVar)
	if err != nil {
		return nil, err
	}
	out := append([]string{p}, argv[1:]...)
	return out, nil
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(s string) ([]string, error) {
	argv := strings.Fields(s)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	return argv, nil
}

// InstallInstructions returns how to install a player binary.
func InstallInstructions(binary, goos string) string {
	name := binary
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	pkg := name
	switch name {
	case "ffplay", "ffmpeg":
		pkg = "ffmpeg"
	case "cvlc", "vlc":
		pkg = "vlc"
	}

	switch goos {
	case "darwin":
		return fmt.Sprintf("Install %s with: brew install %s", name, pkg)
	case "linux":
		return fmt.Sprintf("Install %s with: sudo apt-get update && sudo apt-get install %s", name, pkg)
	case "windows":
		return fmt.Sprintf("Install %s with: winget install %s", name, pkg)
	default:
		return fmt.Sprintf("Install %s (package %s) and make sure it is in your PATH.", name, pkg)
	}
}
