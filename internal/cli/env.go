package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-chatter/internal/audiosys"
	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/controller"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/machine"
	"github.com/alnah/go-chatter/internal/player"
	"github.com/alnah/go-chatter/internal/upload"
)

// EnvOpenAIKey holds the API key of the openai backend.
const EnvOpenAIKey = "OPENAI_API_KEY"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Stdout io.Writer
	Getenv func(string) string

	// Factories for domain objects
	ConfigLoader    ConfigLoader
	InputFactory    InputFactory
	CaptureFactory  CaptureFactory
	UploaderFactory UploaderFactory
	PlayerFactory   PlayerFactory
	AudioDevices    AudioDeviceLister
}

// ConfigLoader loads the validated configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// InputRegistry is what the commands need from input.Registry.
type InputRegistry interface {
	controller.Registry
	Describe() ([]input.DeviceInfo, error)
	WithButton(code uint16) (input.Device, error)
}

// InputFactory opens controllers.
type InputFactory interface {
	NewRegistry(reference []uint16, logger zerolog.Logger) InputRegistry
	OpenKeyboard(km input.Keymap) (input.Device, error)
}

// CaptureFactory creates the recording coordinator.
type CaptureFactory interface {
	NewCapturer(cfg config.Config, logger zerolog.Logger) (machine.Capturer, error)
}

// UploaderFactory creates the backend answering recordings.
type UploaderFactory interface {
	NewWebhook(cfg config.Config, logger zerolog.Logger) (upload.Uploader, error)
	NewOpenAI(cfg config.Config, apiKey string, logger zerolog.Logger) (upload.Uploader, error)
}

// PlayerFactory creates the audio and video players.
type PlayerFactory interface {
	ResolveCommand(argv []string, envVar string) ([]string, error)
	NewExternal(argv []string, logger zerolog.Logger) player.AudioPlayer
	NewNative(logger zerolog.Logger) player.AudioPlayer
	NewLooper(argv []string, logger zerolog.Logger) player.VideoSwitcher
}

// AudioDeviceLister lists capture devices.
type AudioDeviceLister interface {
	ListInputDevices(channels int) ([]capture.InputDevice, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithInputFactory sets the input factory.
func WithInputFactory(f InputFactory) EnvOption {
	return func(e *Env) {
		e.InputFactory = f
	}
}

// WithCaptureFactory sets the capture factory.
func WithCaptureFactory(f CaptureFactory) EnvOption {
	return func(e *Env) {
		e.CaptureFactory = f
	}
}

// WithUploaderFactory sets the uploader factory.
func WithUploaderFactory(f UploaderFactory) EnvOption {
	return func(e *Env) {
		e.UploaderFactory = f
	}
}

// WithPlayerFactory sets the player factory.
func WithPlayerFactory(f PlayerFactory) EnvOption {
	return func(e *Env) {
		e.PlayerFactory = f
	}
}

// WithAudioDevices sets the capture device lister.
func WithAudioDevices(l AudioDeviceLister) EnvOption {
	return func(e *Env) {
		e.AudioDevices = l
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:          os.Stderr,
		Stdout:          os.Stdout,
		Getenv:          os.Getenv,
		ConfigLoader:    &defaultConfigLoader{},
		InputFactory:    &defaultInputFactory{},
		CaptureFactory:  &defaultCaptureFactory{},
		UploaderFactory: &defaultUploaderFactory{},
		PlayerFactory:   &defaultPlayerFactory{resolver: player.NewResolver()},
		AudioDevices:    &defaultAudioDevices{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

type defaultInputFactory struct{}

func (defaultInputFactory) NewRegistry(reference []uint16, logger zerolog.Logger) InputRegistry {
	return input.NewRegistry(input.WithReference(reference), input.WithLogger(logger))
}

func (defaultInputFactory) OpenKeyboard(km input.Keymap) (input.Device, error) {
	return input.OpenKeyboard(km)
}

type defaultCaptureFactory struct{}

func (defaultCaptureFactory) NewCapturer(cfg config.Config, logger zerolog.Logger) (machine.Capturer, error) {
	c, err := capture.NewCoordinator(
		capture.NewPortAudioOpener(cfg.InputDevice),
		cfg.Format,
		capture.WithMaxReadErrors(cfg.MaxReadErrors),
		capture.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type defaultUploaderFactory struct{}

func (defaultUploaderFactory) NewWebhook(cfg config.Config, logger zerolog.Logger) (upload.Uploader, error) {
	w, err := upload.NewWebhook(cfg.UploadURL,
		upload.WithField(cfg.UploadField),
		upload.WithTimeout(cfg.UploadTimeout),
		upload.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (defaultUploaderFactory) NewOpenAI(cfg config.Config, apiKey string, logger zerolog.Logger) (upload.Uploader, error) {
	return upload.NewOpenAIResponder(openai.NewClient(apiKey),
		upload.WithChatModel(cfg.OpenAIChatModel),
		upload.WithVoice(cfg.OpenAIVoice),
		upload.WithSystemPrompt(cfg.OpenAISystemPrompt),
		upload.WithResponderTimeout(cfg.UploadTimeout),
		upload.WithResponderLogger(logger),
	), nil
}

type defaultPlayerFactory struct {
	resolver *player.Resolver
}

func (f defaultPlayerFactory) ResolveCommand(argv []string, envVar string) ([]string, error) {
	return f.resolver.ResolveCommand(argv, envVar)
}

func (defaultPlayerFactory) NewExternal(argv []string, logger zerolog.Logger) player.AudioPlayer {
	return player.NewExternal(argv, player.WithExternalLogger(logger))
}

func (defaultPlayerFactory) NewNative(logger zerolog.Logger) player.AudioPlayer {
	return player.NewNative(player.WithNativeLogger(logger))
}

func (defaultPlayerFactory) NewLooper(argv []string, logger zerolog.Logger) player.VideoSwitcher {
	return player.NewLooper(argv, player.WithLooperLogger(logger))
}

type defaultAudioDevices struct{}

func (defaultAudioDevices) ListInputDevices(channels int) ([]capture.InputDevice, error) {
	return capture.ListInputDevices(audiosys.Default(), channels)
}

// Compile-time interface verification.
var (
	_ ConfigLoader      = (*defaultConfigLoader)(nil)
	_ InputFactory      = (*defaultInputFactory)(nil)
	_ InputRegistry     = (*input.Registry)(nil)
	_ CaptureFactory    = (*defaultCaptureFactory)(nil)
	_ UploaderFactory   = (*defaultUploaderFactory)(nil)
	_ PlayerFactory     = (*defaultPlayerFactory)(nil)
	_ AudioDeviceLister = (*defaultAudioDevices)(nil)
)
