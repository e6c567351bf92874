package cli

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/config"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/machine"
	"github.com/alnah/go-chatter/internal/player"
	"github.com/alnah/go-chatter/internal/upload"
)

// ---------------------------------------------------------------------------
// Fake Device - events are pushed by the test
// ---------------------------------------------------------------------------

type fakeDevice struct {
	name   string
	path   string
	events chan input.ButtonEvent
	closed chan struct{}
	once   sync.Once
}

var _ input.Device = (*fakeDevice)(nil)

func newFakeDevice(path string) *fakeDevice {
	return &fakeDevice{
		name:   "fake " + path,
		path:   path,
		events: make(chan input.ButtonEvent, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeDevice) Name() string { return f.name }
func (f *fakeDevice) Path() string { return f.path }

func (f *fakeDevice) KeyCodes() ([]uint16, error) {
	return []uint16{input.BtnSouth, input.BtnStart}, nil
}

func (f *fakeDevice) ReadEvent() (input.ButtonEvent, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case <-f.closed:
		return input.ButtonEvent{}, input.ErrClosed
	}
}

func (f *fakeDevice) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeDevice) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeDevice) press(code uint16) {
	f.events <- input.ButtonEvent{Source: f.path, Code: code, Edge: input.EdgeDown, Time: time.Now()}
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	cfg config.Config
	err error

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++
	return m.cfg, m.err
}

// ---------------------------------------------------------------------------
// Mock InputFactory + InputRegistry
// ---------------------------------------------------------------------------

type mockRegistry struct {
	mu sync.Mutex

	devices       map[string]*fakeDevice
	capable       []*fakeDevice
	capableErr    error
	infos         []input.DeviceInfo
	describeErr   error
	withButton    *fakeDevice
	withButtonErr error

	opened    []string
	requested []uint16
}

var _ InputRegistry = (*mockRegistry)(nil)

func (m *mockRegistry) Open(path string) (input.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, path)
	d, ok := m.devices[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return d, nil
}

func (m *mockRegistry) ButtonCapable() ([]input.Device, error) {
	if m.capableErr != nil {
		return nil, m.capableErr
	}
	out := make([]input.Device, len(m.capable))
	for i, d := range m.capable {
		out[i] = d
	}
	return out, nil
}

func (m *mockRegistry) Describe() ([]input.DeviceInfo, error) {
	return m.infos, m.describeErr
}

func (m *mockRegistry) WithButton(code uint16) (input.Device, error) {
	m.mu.Lock()
	m.requested = append(m.requested, code)
	m.mu.Unlock()
	if m.withButtonErr != nil {
		return nil, m.withButtonErr
	}
	if m.withButton == nil {
		return nil, input.ErrNoCapableDevice
	}
	return m.withButton, nil
}

func (m *mockRegistry) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

type mockInputFactory struct {
	registry    *mockRegistry
	keyboard    *fakeDevice
	keyboardErr error

	mu            sync.Mutex
	references    [][]uint16
	keyboardOpens int
}

func (m *mockInputFactory) NewRegistry(reference []uint16, _ zerolog.Logger) InputRegistry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references = append(m.references, reference)
	return m.registry
}

func (m *mockInputFactory) OpenKeyboard(input.Keymap) (input.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyboardOpens++
	if m.keyboardErr != nil {
		return nil, m.keyboardErr
	}
	if m.keyboard == nil {
		return nil, os.ErrNotExist
	}
	return m.keyboard, nil
}

func (m *mockInputFactory) KeyboardOpens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keyboardOpens
}

// ---------------------------------------------------------------------------
// Mock CaptureFactory with a scripted audio source
// ---------------------------------------------------------------------------

// chunkSource yields one small chunk per millisecond and closes primed
// after the first one.
type chunkSource struct {
	primed chan struct{}
	once   *sync.Once
}

func (s chunkSource) Read() ([]byte, error) {
	time.Sleep(time.Millisecond)
	s.once.Do(func() { close(s.primed) })
	return []byte{1, 0, 2, 0}, nil
}

func (chunkSource) Close() error { return nil }

type mockCaptureFactory struct {
	err error

	mu     sync.Mutex
	calls  int
	primed chan struct{}
}

func (m *mockCaptureFactory) NewCapturer(cfg config.Config, _ zerolog.Logger) (machine.Capturer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	opener := capture.OpenerFunc(func(capture.Format) (capture.Source, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.primed = make(chan struct{})
		return chunkSource{primed: m.primed, once: &sync.Once{}}, nil
	})
	return capture.NewCoordinator(opener, cfg.Format)
}

// Primed returns the channel of the current recording, nil before any.
func (m *mockCaptureFactory) Primed() chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primed
}

// ---------------------------------------------------------------------------
// Mock UploaderFactory + Uploader
// ---------------------------------------------------------------------------

type mockUploader struct {
	resp []byte
	err  error

	mu    sync.Mutex
	calls int
	ctype string
}

func (u *mockUploader) Upload(_ context.Context, _ []byte, contentType string) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.ctype = contentType
	return u.resp, u.err
}

func (u *mockUploader) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

type mockUploaderFactory struct {
	uploader *mockUploader

	mu           sync.Mutex
	webhookCalls int
	openAICalls  int
	apiKey       string
}

func (m *mockUploaderFactory) NewWebhook(config.Config, zerolog.Logger) (upload.Uploader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhookCalls++
	return m.uploader, nil
}

func (m *mockUploaderFactory) NewOpenAI(_ config.Config, apiKey string, _ zerolog.Logger) (upload.Uploader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openAICalls++
	m.apiKey = apiKey
	return m.uploader, nil
}

// ---------------------------------------------------------------------------
// Mock PlayerFactory + players
// ---------------------------------------------------------------------------

type mockPlayer struct {
	mu    sync.Mutex
	paths []string
}

func (p *mockPlayer) Play(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return nil
}

func (p *mockPlayer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

type mockVideo struct {
	mu       sync.Mutex
	switches []string
	stops    int
}

func (v *mockVideo) Switch(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.switches = append(v.switches, path)
	return nil
}

func (v *mockVideo) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stops++
	return nil
}

func (v *mockVideo) Switches() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.switches...)
}

func (v *mockVideo) Stops() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stops
}

type mockPlayerFactory struct {
	// missing maps an env var to the error its command resolves to.
	missing map[string]error
	player  *mockPlayer
	video   *mockVideo

	mu           sync.Mutex
	externalArgv []string
	looperArgv   []string
	natives      int
}

func (m *mockPlayerFactory) ResolveCommand(argv []string, envVar string) ([]string, error) {
	if err := m.missing[envVar]; err != nil {
		return nil, err
	}
	out := append([]string{"/usr/bin/" + argv[0]}, argv[1:]...)
	return out, nil
}

func (m *mockPlayerFactory) NewExternal(argv []string, _ zerolog.Logger) player.AudioPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalArgv = argv
	return m.player
}

func (m *mockPlayerFactory) NewNative(zerolog.Logger) player.AudioPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.natives++
	return m.player
}

func (m *mockPlayerFactory) NewLooper(argv []string, _ zerolog.Logger) player.VideoSwitcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.looperArgv = argv
	return m.video
}

// ---------------------------------------------------------------------------
// Mock AudioDeviceLister
// ---------------------------------------------------------------------------

type mockAudioDevices struct {
	devices []capture.InputDevice
	err     error

	mu       sync.Mutex
	channels []int
}

func (m *mockAudioDevices) ListInputDevices(channels int) ([]capture.InputDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channels)
	return m.devices, m.err
}

// Compile-time interface verification.
var (
	_ ConfigLoader         = (*mockConfigLoader)(nil)
	_ InputFactory         = (*mockInputFactory)(nil)
	_ CaptureFactory       = (*mockCaptureFactory)(nil)
	_ UploaderFactory      = (*mockUploaderFactory)(nil)
	_ PlayerFactory        = (*mockPlayerFactory)(nil)
	_ AudioDeviceLister    = (*mockAudioDevices)(nil)
	_ upload.Uploader      = (*mockUploader)(nil)
	_ player.AudioPlayer   = (*mockPlayer)(nil)
	_ player.VideoSwitcher = (*mockVideo)(nil)
)
