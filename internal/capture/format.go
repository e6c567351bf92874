package capture

import (
	"fmt"
	"time"
)

// BytesPerSample is fixed: samples are signed 16-bit little-endian.
const BytesPerSample = 2

// Format describes the PCM stream a Source produces.
type Format struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// DefaultFormat is 48 kHz mono with 1024-frame buffers.
func DefaultFormat() Format {
	return Format{SampleRate: 48000, Channels: 1, FramesPerBuffer: 1024}
}

// Validate checks that every field is usable.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("sample rate %d: %w", f.SampleRate, ErrInvalidFormat)
	case f.Channels <= 0:
		return fmt.Errorf("channels %d: %w", f.Channels, ErrInvalidFormat)
	case f.FramesPerBuffer <= 0:
		return fmt.Errorf("frames per buffer %d: %w", f.FramesPerBuffer, ErrInvalidFormat)
	}
	return nil
}

// BytesPerFrame is the size of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return BytesPerSample * f.Channels
}

// Duration converts a byte count to playback time.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, s16le", f.SampleRate, f.Channels)
}
