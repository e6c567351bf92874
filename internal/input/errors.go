package input

import "errors"

var (
	// ErrEnumeration indicates the input device directory could not be listed.
	ErrEnumeration = errors.New("input device enumeration failed")

	// ErrUnsupportedPlatform indicates evdev input is not available on this OS.
	ErrUnsupportedPlatform = errors.New("evdev input is only supported on linux")

	// ErrUnknownButton indicates a button name is not in the button table.
	ErrUnknownButton = errors.New("unknown button name")

	// ErrNoCapableDevice indicates no device can emit the requested button.
	ErrNoCapableDevice = errors.New("no device can emit the requested button")

	// ErrClosed is returned by ReadEvent after the device has been closed.
	ErrClosed = errors.New("input device closed")
)
