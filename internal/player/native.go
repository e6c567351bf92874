package player

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
	"github.com/tosone/minimp3"

	"github.com/alnah/go-chatter/internal/audiosys"
)

// outputFramesPerBuffer is the PortAudio output buffer size in frames.
const outputFramesPerBuffer = 1024

// PCM is decoded interleaved 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// sinkFn plays decoded audio and blocks until done.
type sinkFn func(ctx context.Context, pcm PCM) error

// Native decodes MP3 or WAV in process and plays it on the default
// PortAudio output device.
type Native struct {
	sys    *audiosys.System
	sink   sinkFn
	logger zerolog.Logger
}

// NativeOption configures a Native player.
type NativeOption func(*Native)

// WithSystem sets the shared PortAudio lifecycle.
func WithSystem(sys *audiosys.System) NativeOption {
	return func(n *Native) { n.sys = sys }
}

// WithSink replaces the PortAudio output (for testing).
func WithSink(fn sinkFn) NativeOption {
	return func(n *Native) { n.sink = fn }
}

// WithNativeLogger sets the logger.
func WithNativeLogger(l zerolog.Logger) NativeOption {
	return func(n *Native) {
		n.logger = l.With().Str("component", "player").Logger()
	}
}

// NewNative creates a native player.
func NewNative(opts ...NativeOption) *Native {
	n := &Native{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(n)
	}
	if n.sys == nil {
		n.sys = audiosys.Default()
	}
	if n.sink == nil {
		n.sink = n.portAudioSink
	}
	return n
}

// Play decodes path and plays it.
func (n *Native) Play(ctx context.Context, path string) error {
	if err := checkAudioFile(os.Stat, path); err != nil {
		return err
	}
	// #nosec G304 -- path is a temp file written by this process
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoAudio, err)
	}

	pcm, err := Decode(data)
	if err != nil {
		return err
	}
	n.logger.Debug().
		Int("sample_rate", pcm.SampleRate).
		Int("channels", pcm.Channels).
		Int("samples", len(pcm.Samples)).
		Msg("playing")

	if err := n.sink(ctx, pcm); err != nil {
		return fmt.Errorf("%w: %w", ErrPlaybackFailed, err)
	}
	return nil
}

// Decode turns an MP3 or WAV payload into PCM.
func Decode(data []byte) (PCM, error) {
	if len(data) == 0 {
		return PCM{}, ErrNoAudio
	}
	if len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return decodeWAV(data)
	}
	return decodeMP3(data)
}

func decodeMP3(data []byte) (PCM, error) {
	dec, raw, err := minimp3.DecodeFull(data)
	if err != nil {
		return PCM{}, fmt.Errorf("%w: mp3: %w", ErrUnsupportedAudio, err)
	}
	defer dec.Close()

	if dec.SampleRate <= 0 || dec.Channels <= 0 || len(raw) < 2 {
		return PCM{}, fmt.Errorf("%w: mp3 without audio frames", ErrUnsupportedAudio)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[2*i]) | int16(raw[2*i+1])<<8
	}
	return PCM{Samples: samples, SampleRate: dec.SampleRate, Channels: dec.Channels}, nil
}

func decodeWAV(data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: invalid wav", ErrUnsupportedAudio)
	}
	if d.BitDepth != 16 {
		return PCM{}, fmt.Errorf("%w: wav bit depth %d", ErrUnsupportedAudio, d.BitDepth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("%w: wav: %w", ErrUnsupportedAudio, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return PCM{}, fmt.Errorf("%w: wav without samples", ErrNoAudio)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return PCM{Samples: samples, SampleRate: buf.Format.SampleRate, Channels: buf.Format.NumChannels}, nil
}

// portAudioSink writes pcm to a blocking default output stream.
func (n *Native) portAudioSink(ctx context.Context, pcm PCM) error {
	if err := n.sys.Acquire(); err != nil {
		return err
	}
	defer n.sys.Release()

	out := make([]int16, outputFramesPerBuffer*pcm.Channels)
	stream, err := portaudio.OpenDefaultStream(0, pcm.Channels, float64(pcm.SampleRate), outputFramesPerBuffer, &out)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer func() { _ = stream.Stop() }()

	for off := 0; off < len(pcm.Samples); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := copy(out, pcm.Samples[off:])
		clear(out[c:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}
