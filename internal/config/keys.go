package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/player"
	"github.com/alnah/go-chatter/internal/upload"
)

// ErrInvalid indicates a config value that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// ErrUnknownKey indicates a key that is not a config key.
var ErrUnknownKey = errors.New("unknown config key")

// Config keys.
const (
	KeySampleRate         = "sample-rate"
	KeyChannels           = "channels"
	KeyFramesPerBuffer    = "frames-per-buffer"
	KeyInputDevice        = "input-device"
	KeyController         = "controller"
	KeyControllerPath     = "controller-path"
	KeyDetectTimeout      = "detect-timeout"
	KeyButtonStartStop    = "button-start-stop"
	KeyButtonQuit         = "button-quit"
	KeyButtonReference    = "button-reference"
	KeyBackend            = "backend"
	KeyUploadURL          = "upload-url"
	KeyUploadField        = "upload-field"
	KeyUploadTimeout      = "upload-timeout"
	KeyOpenAIChatModel    = "openai-chat-model"
	KeyOpenAIVoice        = "openai-voice"
	KeyOpenAISystemPrompt = "openai-system-prompt"
	KeyPlayer             = "player"
	KeyPlayerCommand      = "player-command"
	KeyVideoCommand       = "video-command"
	KeyVideoDir           = "video-dir"
	KeyTempDir            = "temp-dir"
	KeyJoinTimeout        = "join-timeout"
	KeyQuitJoinTimeout    = "quit-join-timeout"
	KeyMaxReadErrors      = "max-read-errors"
	KeyLogLevel           = "log-level"
	KeyLogFormat          = "log-format"
)

// Enumerated values.
const (
	ControllerAuto     = "auto"
	ControllerKeyboard = "keyboard"

	BackendWebhook = "webhook"
	BackendOpenAI  = "openai"

	PlayerExternal = "external"
	PlayerNative   = "native"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// EnvPrefix prefixes the environment fallback of every key.
const EnvPrefix = "CHATTER_"

// keySpec describes one key: its default and how to check a value.
type keySpec struct {
	name  string
	def   string
	help  string
	check func(string) error
}

var specs = []keySpec{
	{KeySampleRate, "48000", "capture sample rate in Hz", positiveInt},
	{KeyChannels, "1", "capture channels", positiveInt},
	{KeyFramesPerBuffer, "1024", "frames per capture chunk", positiveInt},
	{KeyInputDevice, "-1", "PortAudio input device index, -1 for the default", integer},
	{KeyController, ControllerAuto, "auto (evdev) or keyboard", oneOf(ControllerAuto, ControllerKeyboard)},
	{KeyControllerPath, "", "input device path to use without detection", nil},
	{KeyDetectTimeout, "15s", "how long to wait for a button press during detection", positiveDuration},
	{KeyButtonStartStop, "BTN_SOUTH", "button that starts and stops recording", button},
	{KeyButtonQuit, "BTN_START", "button that quits", button},
	{KeyButtonReference, "", "comma-separated buttons that make a device a controller", buttonList},
	{KeyBackend, BackendWebhook, "webhook or openai", oneOf(BackendWebhook, BackendOpenAI)},
	{KeyUploadURL, "", "webhook URL receiving the recording", httpURL},
	{KeyUploadField, upload.DefaultField, "multipart field name of the recording", nonEmpty},
	{KeyUploadTimeout, "30s", "upload timeout", positiveDuration},
	{KeyOpenAIChatModel, upload.DefaultChatModel, "chat model of the openai backend", nonEmpty},
	{KeyOpenAIVoice, upload.DefaultVoice, "voice of the openai backend", nonEmpty},
	{KeyOpenAISystemPrompt, upload.DefaultSystemPrompt, "assistant instructions of the openai backend", nonEmpty},
	{KeyPlayer, PlayerExternal, "external or native", oneOf(PlayerExternal, PlayerNative)},
	{KeyPlayerCommand, strings.Join(player.DefaultAudioCommand, " "), "external audio player command", command},
	{KeyVideoCommand, strings.Join(player.DefaultVideoCommand, " "), "looping video player command", command},
	{KeyVideoDir, "", "directory with idle/listening/thinking/talking.mp4, empty disables video", nil},
	{KeyTempDir, "", "directory for temporary clips, empty for the system default", nil},
	{KeyJoinTimeout, "5s", "how long stopping a recording may take", positiveDuration},
	{KeyQuitJoinTimeout, "2s", "how long stopping a recording may take on quit", positiveDuration},
	{KeyMaxReadErrors, "5", "consecutive read errors that end a recording", positiveInt},
	{KeyLogLevel, "info", "debug, info, warn or error", oneOf("debug", "info", "warn", "error")},
	{KeyLogFormat, FormatConsole, "console or json", oneOf(FormatConsole, FormatJSON)},
}

// Keys returns all config keys in display order.
func Keys() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.name
	}
	return out
}

func lookup(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.name == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// Default returns the default value of key.
func Default(key string) string {
	s, _ := lookup(key)
	return s.def
}

// Help returns the description of key.
func Help(key string) string {
	s, _ := lookup(key)
	return s.help
}

// EnvName returns the environment fallback of key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Check validates a value for key.
func Check(key, value string) error {
	s, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if s.check == nil || value == "" && s.def == "" {
		return nil
	}
	if err := s.check(value); err != nil {
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, value, err)
	}
	return nil
}

// Source tells where an effective value comes from.
type Source string

// Value sources.
const (
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// Entry is one effective config value.
type Entry struct {
	Key    string
	Value  string
	Source Source
}

// Effective returns the value of every key after applying file, env and
// default precedence.
func Effective(file map[string]string, getenv func(string) string) []Entry {
	out := make([]Entry, 0, len(specs))
	for _, s := range specs {
		switch {
		case file[s.name] != "":
			out = append(out, Entry{s.name, file[s.name], SourceFile})
		case getenv(EnvName(s.name)) != "":
			out = append(out, Entry{s.name, getenv(EnvName(s.name)), SourceEnv})
		default:
			out = append(out, Entry{s.name, s.def, SourceDefault})
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Value checks
// ---------------------------------------------------------------------------

func integer(v string) error {
	_, err := strconv.Atoi(v)
	return err
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if n <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func positiveDuration(v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func nonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func oneOf(allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func button(v string) error {
	_, err := input.ParseButton(v)
	return err
}

func buttonList(v string) error {
	_, err := input.ParseButtonList(v)
	return err
}

func command(v string) error {
	_, err := player.ParseCommand(v)
	return err
}

func httpURL(v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Typed configuration
// ---------------------------------------------------------------------------

// Config is the validated configuration.
type Config struct {
	Format        capture.Format
	InputDevice   int
	MaxReadErrors int

	Controller      string
	ControllerPath  string
	DetectTimeout   time.Duration
	Keymap          input.Keymap
	ButtonReference []uint16

	Backend            string
	UploadURL          string
	UploadField        string
	UploadTimeout      time.Duration
	OpenAIChatModel    string
	OpenAIVoice        string
	OpenAISystemPrompt string

	Player        string
	PlayerCommand []string
	VideoCommand  []string
	VideoDir      string
	TempDir       string

	JoinTimeout     time.Duration
	QuitJoinTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Resolve builds a Config from file values and an environment lookup.
// Every invalid value is reported, joined into one error.
func Resolve(file map[string]string, getenv func(string) string) (Config, error) {
	values := make(map[string]string, len(specs))
	var errs []error
	for _, e := range Effective(file, getenv) {
		if err := Check(e.Key, e.Value); err != nil {
			errs = append(errs, fmt.Errorf("%w (from %s)", err, e.Source))
			continue
		}
		values[e.Key] = e.Value
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	var cfg Config
	cfg.Format = capture.Format{
		SampleRate:      atoi(values[KeySampleRate]),
		Channels:        atoi(values[KeyChannels]),
		FramesPerBuffer: atoi(values[KeyFramesPerBuffer]),
	}
	cfg.InputDevice = atoi(values[KeyInputDevice])
	cfg.MaxReadErrors = atoi(values[KeyMaxReadErrors])

	cfg.Controller = values[KeyController]
	cfg.ControllerPath = ExpandPath(values[KeyControllerPath])
	cfg.DetectTimeout = duration(values[KeyDetectTimeout])
	startStop, _ := input.ParseButton(values[KeyButtonStartStop])
	quit, _ := input.ParseButton(values[KeyButtonQuit])
	cfg.Keymap = input.Keymap{StartStop: startStop, Quit: quit}
	if err := cfg.Keymap.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cfg.ButtonReference = slices.Clone(input.DefaultReference)
	if v := values[KeyButtonReference]; v != "" {
		cfg.ButtonReference, _ = input.ParseButtonList(v)
	}

	cfg.Backend = values[KeyBackend]
	cfg.UploadURL = values[KeyUploadURL]
	cfg.UploadField = values[KeyUploadField]
	cfg.UploadTimeout = duration(values[KeyUploadTimeout])
	cfg.OpenAIChatModel = values[KeyOpenAIChatModel]
	cfg.OpenAIVoice = values[KeyOpenAIVoice]
	cfg.OpenAISystemPrompt = values[KeyOpenAISystemPrompt]

	cfg.Player = values[KeyPlayer]
	cfg.PlayerCommand, _ = player.ParseCommand(values[KeyPlayerCommand])
	cfg.VideoCommand, _ = player.ParseCommand(values[KeyVideoCommand])
	cfg.VideoDir = ExpandPath(values[KeyVideoDir])
	cfg.TempDir = ExpandPath(values[KeyTempDir])
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	cfg.JoinTimeout = duration(values[KeyJoinTimeout])
	cfg.QuitJoinTimeout = duration(values[KeyQuitJoinTimeout])

	cfg.LogLevel = values[KeyLogLevel]
	cfg.LogFormat = values[KeyLogFormat]

	if err := cfg.Format.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

func atoi(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

func duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}
