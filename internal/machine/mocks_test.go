package machine_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alnah/go-chatter/internal/capture"
	"github.com/alnah/go-chatter/internal/input"
	"github.com/alnah/go-chatter/internal/machine"
)

// ---------------------------------------------------------------------------
// Fake controller
// ---------------------------------------------------------------------------

type fakeDevice struct {
	events chan input.ButtonEvent
	fail   chan error
	closed chan struct{}
	once   sync.Once
}

var _ input.Device = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		events: make(chan input.ButtonEvent, 8),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeDevice) Name() string                { return "fake pad" }
func (f *fakeDevice) Path() string                { return "/dev/input/event99" }
func (f *fakeDevice) KeyCodes() ([]uint16, error) { return nil, nil }

func (f *fakeDevice) ReadEvent() (input.ButtonEvent, error) {
	select {
	case ev := <-f.events:
		return ev, nil
	case err := <-f.fail:
		return input.ButtonEvent{}, err
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

func (f *fakeDevice) send(code uint16, edge input.Edge) {
	f.events <- input.ButtonEvent{Source: f.Path(), Code: code, Edge: edge, Time: time.Now()}
}

func (f *fakeDevice) press(code uint16) { f.send(code, input.EdgeDown) }

// ---------------------------------------------------------------------------
// Fake audio source
// ---------------------------------------------------------------------------

// chunkSource yields one small chunk per millisecond and signals primed
// after the first one. silent sources yield nothing.
type chunkSource struct {
	silent bool
	primed chan struct{}
	once   *sync.Once
}

func (s chunkSource) Read() ([]byte, error) {
	time.Sleep(time.Millisecond)
	if s.silent {
		return nil, nil
	}
	s.once.Do(func() { close(s.primed) })
	return []byte{1, 0, 2, 0}, nil
}

func (chunkSource) Close() error { return nil }

// sourceOpener counts opens and hands out a fresh chunkSource each time.
type sourceOpener struct {
	silent bool
	fail   error
	opens  atomic.Int32

	mu     sync.Mutex
	primed chan struct{}
}

func (o *sourceOpener) Open(capture.Format) (capture.Source, error) {
	o.opens.Add(1)
	if o.fail != nil {
		return nil, o.fail
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.primed = make(chan struct{})
	return chunkSource{silent: o.silent, primed: o.primed, once: &sync.Once{}}, nil
}

// waitPrimed blocks until the current source delivered a chunk.
func (o *sourceOpener) waitPrimed(t *testing.T) {
	t.Helper()
	o.mu.Lock()
	ch := o.primed
	o.mu.Unlock()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never produced a chunk")
	}
}

// ---------------------------------------------------------------------------
// Mock uploader / player / video
// ---------------------------------------------------------------------------

type mockUploader struct {
	mu     sync.Mutex
	calls  int
	audio  []byte
	ctype  string
	resp   []byte
	err    error
	during func()
}

func (u *mockUploader) Upload(_ context.Context, audio []byte, contentType string) ([]byte, error) {
	u.mu.Lock()
	u.calls++
	u.audio = append([]byte(nil), audio...)
	u.ctype = contentType
	during := u.during
	u.mu.Unlock()

	if during != nil {
		during()
	}
	return u.resp, u.err
}

func (u *mockUploader) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

type mockPlayer struct {
	mu     sync.Mutex
	paths  []string
	played [][]byte
	err    error
}

func (p *mockPlayer) Play(_ context.Context, path string) error {
	data, err := os.ReadFile(path)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	p.played = append(p.played, data)
	if err != nil {
		return err
	}
	return p.err
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
	err      error
}

func (v *mockVideo) Switch(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.switches = append(v.switches, path)
	return v.err
}

func (v *mockVideo) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stops++
	return nil
}

// ---------------------------------------------------------------------------
// Transition recorder
// ---------------------------------------------------------------------------

type transition struct{ from, to machine.State }

type recorder struct {
	mu    sync.Mutex
	seen  []transition
	state chan machine.State
}

func newRecorder() *recorder {
	return &recorder{state: make(chan machine.State, 64)}
}

func (r *recorder) observe(from, to machine.State) {
	r.mu.Lock()
	r.seen = append(r.seen, transition{from, to})
	r.mu.Unlock()
	r.state <- to
}

func (r *recorder) Transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.seen...)
}

// waitFor blocks until the machine enters s.
func (r *recorder) waitFor(t *testing.T, s machine.State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-r.state:
			if got == s {
				return
			}
		case <-deadline:
			t.Fatalf("machine never entered %v (seen %v)", s, r.Transitions())
		}
	}
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	dev    *fakeDevice
	opener *sourceOpener
	coord  *capture.Coordinator
	up     *mockUploader
	player *mockPlayer
	video  *mockVideo
	rec    *recorder
	temp   string
	done   chan error
}

var testFormat = capture.Format{SampleRate: 16000, Channels: 1, FramesPerBuffer: 2}

func newHarness(t *testing.T, opener *sourceOpener, up *mockUploader) *harness {
	t.Helper()
	coord, err := capture.NewCoordinator(opener, testFormat)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{
		dev:    newFakeDevice(),
		opener: opener,
		coord:  coord,
		up:     up,
		player: &mockPlayer{},
		video:  &mockVideo{},
		rec:    newRecorder(),
		temp:   t.TempDir(),
		done:   make(chan error, 1),
	}
}

func (h *harness) start(ctx context.Context) *machine.Machine {
	m := machine.New(h.coord, h.up, h.player,
		machine.WithTempDir(h.temp),
		machine.WithVideo(h.video, machine.VideosIn("/videos")),
		machine.WithJoinTimeouts(time.Second, 500*time.Millisecond),
		machine.WithObserver(h.rec.observe),
	)
	go func() { h.done <- m.Run(ctx, h.dev) }()
	return m
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func (h *harness) assertTempEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.temp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("temp file left behind: %s", e.Name())
	}
}

var errBoom = errors.New("boom")
