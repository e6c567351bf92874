package cli

// Notes:
// - runRun is driven end to end with a fake controller, a real
//   capture.Coordinator over a scripted source, and mock backends.
// - Presses are pushed into the fake device's buffered channel; the
//   machine reads them in order.

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/controller"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/player"
)

const padPath = "/dev/input/event5"

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
		return nil
	}
}

// startRun pins padPath as the controller and runs in the background.
func startRun(t *testing.T, ctx context.Context, file map[string]string) (*testMocks, *fakeDevice, <-chan error) {
	t.Helper()
	if file == nil {
		file = map[string]string{}
	}
	file[config.KeyControllerPath] = padPath
	env, m := newTestEnv(t, testConfig(t, file))
	pad := newFakeDevice(padPath)
	m.registry.devices[padPath] = pad

	done := make(chan error, 1)
	go func() { done <- runRun(ctx, env) }()
	return m, pad, done
}

// ---------------------------------------------------------------------------
// TestRunRun_FullCycle - record, upload, play, quit
// ---------------------------------------------------------------------------

func TestRunRun_FullCycle(t *testing.T) {
	t.Parallel()

	m, pad, done := startRun(t, context.Background(), nil)

	pad.press(input.BtnSouth)
	eventually(t, "recording start", func() bool { return m.capture.Primed() != nil })
	select {
	case <-m.capture.Primed():
	case <-time.After(2 * time.Second):
		t.Fatal("capture never produced a chunk")
	}
	pad.press(input.BtnSouth)
	eventually(t, "playback", func() bool { return m.players.player.Calls() == 1 })
	pad.press(input.BtnStart)

	if err := waitDone(t, done); err != nil {
		t.Fatalf("runRun() unexpected error: %v", err)
	}

	if got := m.uploader.uploader.Calls(); got != 1 {
		t.Errorf("uploads = %d, want 1", got)
	}
	if m.uploader.webhookCalls != 1 {
		t.Errorf("webhook backend built %d times, want 1", m.uploader.webhookCalls)
	}
	if !strings.HasSuffix(m.players.player.paths[0], "-response.mp3") {
		t.Errorf("played %q, want an mp3 answer", m.players.player.paths[0])
	}
	if !pad.isClosed() {
		t.Error("controller not closed")
	}
	for _, want := range []string{"Controller: fake " + padPath, "BTN_SOUTH", "BTN_START", "Bye."} {
		if !m.stderr.Contains(want) {
			t.Errorf("stderr missing %q:\n%s", want, m.stderr.String())
		}
	}
	entries, err := os.ReadDir(m.config.cfg.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestRunRun_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m, pad, done := startRun(t, ctx, nil)

	eventually(t, "banner", func() bool { return m.stderr.Contains("Controller:") })
	cancel()

	err := waitDone(t, done)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runRun() error = %v, want context.Canceled", err)
	}
	if !pad.isClosed() {
		t.Error("controller not closed")
	}
	if m.stderr.Contains("Bye.") {
		t.Error("interrupted run must not say goodbye")
	}
}

// ---------------------------------------------------------------------------
// TestRunRun_Setup - failures before the loop starts
// ---------------------------------------------------------------------------

func TestRunRun_ConfigError(t *testing.T) {
	t.Parallel()

	env, m := newTestEnv(t, testConfig(t, nil))
	m.config.err = config.ErrInvalid

	err := runRun(context.Background(), env)
	if !errors.Is(err, ErrConfig) || !errors.Is(err, config.ErrInvalid) {
		t.Errorf("runRun() error = %v, want ErrConfig wrapping config.ErrInvalid", err)
	}
}

func TestRunRun_Backend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    map[string]string
		vars    map[string]string
		wantErr error
	}{
		{
			name:    "openai without key",
			file:    map[string]string{config.KeyBackend: config.BackendOpenAI},
			wantErr: ErrAPIKeyMissing,
		},
		{
			name:    "webhook without url",
			file:    map[string]string{config.KeyUploadURL: ""},
			wantErr: ErrUploadURLMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, m := newTestEnv(t, testConfig(t, tt.file))
			err := runRun(context.Background(), env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("runRun() error = %v, want %v", err, tt.wantErr)
			}
			if m.capture.calls != 0 {
				t.Error("capture built despite a backend error")
			}
			if len(m.input.references) != 0 || m.input.KeyboardOpens() != 0 {
				t.Error("controller selected despite a backend error")
			}
		})
	}
}

func TestRunRun_OpenAIKeyboard(t *testing.T) {
	t.Parallel()

	env, m := newTestEnv(t, testConfig(t, map[string]string{
		config.KeyBackend:    config.BackendOpenAI,
		config.KeyController: config.ControllerKeyboard,
	}))
	m.vars[EnvOpenAIKey] = "sk-test"
	kbd := newFakeDevice(input.KeyboardPath)
	m.input.keyboard = kbd
	kbd.press(input.BtnStart)

	if err := runRun(context.Background(), env); err != nil {
		t.Fatalf("runRun() unexpected error: %v", err)
	}
	if m.uploader.openAICalls != 1 || m.uploader.apiKey != "sk-test" {
		t.Errorf("openai backend calls = %d key = %q", m.uploader.openAICalls, m.uploader.apiKey)
	}
	if len(m.input.references) != 0 {
		t.Error("keyboard mode must not enumerate input devices")
	}
	if !m.stderr.Contains("Enter/Space") {
		t.Errorf("keyboard controls not shown:\n%s", m.stderr.String())
	}
}

func TestRunRun_NoController(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file map[string]string
		prep func(m *testMocks)
	}{
		{
			name: "no button-capable device",
			file: nil,
		},
		{
			name: "keyboard unavailable",
			file: map[string]string{config.KeyController: config.ControllerKeyboard},
			prep: func(m *testMocks) { m.input.keyboardErr = errors.New("not a terminal") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, m := newTestEnv(t, testConfig(t, tt.file))
			if tt.prep != nil {
				tt.prep(m)
			}
			err := runRun(context.Background(), env)
			if !errors.Is(err, controller.ErrNoDeviceFound) {
				t.Errorf("runRun() error = %v, want ErrNoDeviceFound", err)
			}
		})
	}
}

func TestRunRun_ConfiguredPathFallsBackToRace(t *testing.T) {
	t.Parallel()

	env, m := newTestEnv(t, testConfig(t, map[string]string{
		config.KeyControllerPath: "/dev/input/gone",
		config.KeyDetectTimeout:  "2s",
	}))
	pad := newFakeDevice(padPath)
	m.registry.capable = []*fakeDevice{pad}
	pad.press(input.BtnEast) // the detection press
	pad.press(input.BtnStart)

	if err := runRun(context.Background(), env); err != nil {
		t.Fatalf("runRun() unexpected error: %v", err)
	}
	if !slices.Contains(m.registry.Opened(), "/dev/input/gone") {
		t.Error("configured path not tried first")
	}
	if !m.stderr.Contains("Press any button") {
		t.Error("detection prompt not shown")
	}
	if !pad.isClosed() {
		t.Error("controller not closed")
	}
}

// ---------------------------------------------------------------------------
// TestRunRun_Players - player and video wiring
// ---------------------------------------------------------------------------

func TestRunRun_ExternalPlayerResolved(t *testing.T) {
	t.Parallel()

	m, pad, done := startRun(t, context.Background(), nil)
	pad.press(input.BtnStart)
	if err := waitDone(t, done); err != nil {
		t.Fatal(err)
	}

	want := append([]string{"/usr/bin/ffplay"}, player.DefaultAudioCommand[1:]...)
	if !slices.Equal(m.players.externalArgv, want) {
		t.Errorf("external argv = %v, want %v", m.players.externalArgv, want)
	}
	if m.players.looperArgv != nil {
		t.Error("video looper built without video-dir")
	}
}

func TestRunRun_ExternalPlayerMissingStillRuns(t *testing.T) {
	t.Parallel()

	env, m := newTestEnv(t, testConfig(t, map[string]string{
		config.KeyControllerPath: padPath,
		config.KeyLogLevel:       "warn",
	}))
	m.players.missing = map[string]error{player.EnvPlayerPath: player.ErrNotFound}
	pad := newFakeDevice(padPath)
	m.registry.devices[padPath] = pad
	pad.press(input.BtnStart)

	if err := runRun(context.Background(), env); err != nil {
		t.Fatalf("runRun() unexpected error: %v", err)
	}
	if !slices.Equal(m.players.externalArgv, player.DefaultAudioCommand) {
		t.Errorf("external argv = %v, want the configured command", m.players.externalArgv)
	}
	if !m.stderr.Contains("audio player not found") {
		t.Error("missing player not warned about")
	}
}

func TestRunRun_NativePlayer(t *testing.T) {
	t.Parallel()

	m, pad, done := startRun(t, context.Background(), map[string]string{config.KeyPlayer: config.PlayerNative})
	pad.press(input.BtnStart)
	if err := waitDone(t, done); err != nil {
		t.Fatal(err)
	}
	if m.players.natives != 1 || m.players.externalArgv != nil {
		t.Errorf("natives = %d external = %v", m.players.natives, m.players.externalArgv)
	}
}

func TestRunRun_Video(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, pad, done := startRun(t, context.Background(), map[string]string{config.KeyVideoDir: dir})
	pad.press(input.BtnStart)
	if err := waitDone(t, done); err != nil {
		t.Fatal(err)
	}

	if len(m.players.looperArgv) == 0 || m.players.looperArgv[0] != "/usr/bin/cvlc" {
		t.Errorf("looper argv = %v", m.players.looperArgv)
	}
	switches := m.players.video.Switches()
	if len(switches) == 0 || switches[0] != filepath.Join(dir, "idle.mp4") {
		t.Errorf("switches = %v, want idle video first", switches)
	}
	if m.players.video.Stops() == 0 {
		t.Error("video not stopped on exit")
	}
}

// ---------------------------------------------------------------------------
// TestPrintControls
// ---------------------------------------------------------------------------

func TestPrintControls(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	km := input.Keymap{StartStop: input.BtnEast, Quit: input.BtnSelect}
	printControls(&buf, km, newFakeDevice(padPath))

	out := buf.String()
	for _, want := range []string{"BTN_EAST", "start / stop", "BTN_SELECT", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("controls missing %q:\n%s", want, out)
		}
	}
}
