package cli

import (
	"bytes"
	"io"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-chatter/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Contains(substr string) bool {
	return strings.Contains(b.String(), substr)
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testConfig - a resolved configuration with test-friendly values
// ---------------------------------------------------------------------------

// testConfig resolves defaults overlaid with file. Logging is quiet and
// clips go to a per-test directory.
func testConfig(t *testing.T, file map[string]string) config.Config {
	t.Helper()
	values := map[string]string{
		config.KeyLogLevel:  "error",
		config.KeyLogFormat: config.FormatJSON,
		config.KeyTempDir:   t.TempDir(),
		config.KeyUploadURL: "http://127.0.0.1:5678/webhook/chat",
	}
	maps.Copy(values, file)
	cfg, err := config.Resolve(values, func(string) string { return "" })
	if err != nil {
		t.Fatalf("config.Resolve() unexpected error: %v", err)
	}
	return cfg
}

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	config   *mockConfigLoader
	registry *mockRegistry
	input    *mockInputFactory
	capture  *mockCaptureFactory
	uploader *mockUploaderFactory
	players  *mockPlayerFactory
	audio    *mockAudioDevices
	stdout   *syncBuffer
	stderr   *syncBuffer
	vars     map[string]string
}

func newTestEnv(t *testing.T, cfg config.Config) (*Env, *testMocks) {
	t.Helper()
	reg := &mockRegistry{devices: map[string]*fakeDevice{}}
	m := &testMocks{
		config:   &mockConfigLoader{cfg: cfg},
		registry: reg,
		input:    &mockInputFactory{registry: reg},
		capture:  &mockCaptureFactory{},
		uploader: &mockUploaderFactory{uploader: &mockUploader{resp: []byte("ID3 answer")}},
		players:  &mockPlayerFactory{player: &mockPlayer{}, video: &mockVideo{}},
		audio:    &mockAudioDevices{},
		stdout:   &syncBuffer{},
		stderr:   &syncBuffer{},
		vars:     map[string]string{},
	}
	env := NewEnv(
		WithStdout(m.stdout),
		WithStderr(m.stderr),
		WithGetenv(func(k string) string { return m.vars[k] }),
		WithConfigLoader(m.config),
		WithInputFactory(m.input),
		WithCaptureFactory(m.capture),
		WithUploaderFactory(m.uploader),
		WithPlayerFactory(m.players),
		WithAudioDevices(m.audio),
	)
	return env, m
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
