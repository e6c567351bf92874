package capture

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// WAVHeaderSize is the size of a canonical PCM WAV header. A file of this
// size or smaller holds no audio.
const WAVHeaderSize = 44

// Session is the audio captured between one Start and its Stop.
// Chunks are appended only by the worker; readers get the Session from
// Coordinator.Stop after the worker has exited.
type Session struct {
	ID        uuid.UUID
	Format    Format
	StartedAt time.Time
	StoppedAt time.Time

	chunks [][]byte
}

func newSession(f Format, now time.Time) *Session {
	return &Session{ID: uuid.New(), Format: f, StartedAt: now}
}

// NumChunks returns the number of buffers captured.
func (s *Session) NumChunks() int {
	return len(s.chunks)
}

// Len returns the captured size in bytes.
func (s *Session) Len() int {
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	return n
}

// Bytes returns all chunks concatenated in capture order.
func (s *Session) Bytes() []byte {
	out := make([]byte, 0, s.Len())
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// Duration returns the captured audio length.
func (s *Session) Duration() time.Duration {
	return s.Format.Duration(s.Len())
}

// Release drops the buffered audio.
func (s *Session) Release() {
	s.chunks = nil
}

// WriteWAV encodes the session as 16-bit PCM WAV at path.
func (s *Session) WriteWAV(path string) (err error) {
	f, err := os.Create(path) // #nosec G304 -- path is built from the configured temp dir
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close wav: %w", cerr)
		}
	}()

	enc := wav.NewEncoder(f, s.Format.SampleRate, BytesPerSample*8, s.Format.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.Format.Channels, SampleRate: s.Format.SampleRate},
		Data:           pcmToInts(s.Bytes()),
		SourceBitDepth: BytesPerSample * 8,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// pcmToInts decodes little-endian int16 samples.
func pcmToInts(pcm []byte) []int {
	out := make([]int, len(pcm)/BytesPerSample)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}
