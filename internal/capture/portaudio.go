package capture

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/alnah/go-chatter/internal/audiosys"
)

// DefaultDevice selects the system default input.
const DefaultDevice = -1

// ProbeRates are the sample rates checked when listing input devices.
var ProbeRates = []int{44100, 48000, 32000, 16000, 8000}

// PortAudioOpener opens blocking int16 input streams.
type PortAudioOpener struct {
	// DeviceIndex is a PortAudio device index, or DefaultDevice.
	DeviceIndex int
	System      *audiosys.System
}

var _ Opener = PortAudioOpener{}

// NewPortAudioOpener returns an opener for the given device index.
func NewPortAudioOpener(deviceIndex int) PortAudioOpener {
	return PortAudioOpener{DeviceIndex: deviceIndex, System: audiosys.Default()}
}

// Open starts an input stream for f.
func (o PortAudioOpener) Open(f Format) (Source, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := o.System.Acquire(); err != nil {
		return nil, err
	}

	buf := make([]int16, f.FramesPerBuffer*f.Channels)
	stream, err := o.openStream(f, buf)
	if err != nil {
		_ = o.System.Release()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = o.System.Release()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return &portAudioSource{stream: stream, buf: buf, system: o.System}, nil
}

func (o PortAudioOpener) openStream(f Format, buf []int16) (*portaudio.Stream, error) {
	if o.DeviceIndex == DefaultDevice {
		stream, err := portaudio.OpenDefaultStream(f.Channels, 0, float64(f.SampleRate), f.FramesPerBuffer, buf)
		if err != nil {
			return nil, fmt.Errorf("open default input: %w", err)
		}
		return stream, nil
	}

	dev, err := inputDevice(o.DeviceIndex)
	if err != nil {
		return nil, err
	}
	if dev.MaxInputChannels < f.Channels {
		return nil, fmt.Errorf("device %q has %d input channels, need %d", dev.Name, dev.MaxInputChannels, f.Channels)
	}
	stream, err := portaudio.OpenStream(inputParams(dev, f), buf)
	if err != nil {
		return nil, fmt.Errorf("open input device %q: %w", dev.Name, err)
	}
	return stream, nil
}

func inputDevice(index int) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("audio device index %d out of range (0-%d)", index, len(devs)-1)
	}
	return devs[index], nil
}

func inputParams(dev *portaudio.DeviceInfo, f Format) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: f.FramesPerBuffer,
	}
}

type portAudioSource struct {
	stream *portaudio.Stream
	buf    []int16
	system *audiosys.System
}

func (s *portAudioSource) Read() ([]byte, error) {
	err := s.stream.Read()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, err
	}

	chunk := make([]byte, len(s.buf)*BytesPerSample)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(v))
	}
	if err != nil {
		return chunk, ErrOverflow
	}
	return chunk, nil
}

func (s *portAudioSource) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	relErr := s.system.Release()
	return errors.Join(stopErr, closeErr, relErr)
}

// InputDevice describes a PortAudio capture device.
type InputDevice struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	SupportedRates    []int
	IsDefault         bool
}

// ListInputDevices returns every device with input channels, with the
// ProbeRates it accepts for the given channel count.
func ListInputDevices(sys *audiosys.System, channels int) ([]InputDevice, error) {
	if err := sys.Acquire(); err != nil {
		return nil, err
	}
	defer func() { _ = sys.Release() }()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []InputDevice
	for i, d := range devs {
		if d.MaxInputChannels <= 0 {
			continue
		}
		info := InputDevice{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			IsDefault:         def != nil && def.Name == d.Name,
		}
		ch := min(channels, d.MaxInputChannels)
		for _, rate := range ProbeRates {
			f := Format{SampleRate: rate, Channels: ch, FramesPerBuffer: DefaultFormat().FramesPerBuffer}
			if portaudio.IsFormatSupported(inputParams(d, f), make([]int16, f.FramesPerBuffer*ch)) == nil {
				info.SupportedRates = append(info.SupportedRates, rate)
			}
		}
		out = append(out, info)
	}
	return out, nil
}
