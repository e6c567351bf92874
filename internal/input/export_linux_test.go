//go:build linux

package input

import "os"

// NewTestEvdevDevice wraps f as an evdev event stream.
func NewTestEvdevDevice(f *os.File, path string, codes []uint16) (Device, error) {
	d, err := newEvdevDevice(f, path, "test "+path, codes)
	if err != nil {
		return nil, err
	}
	return d, nil
}
