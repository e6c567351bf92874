package input

import "github.com/eiannone/keyboard"

// NewTestRegistry creates a Registry with injected listing and opening.
func NewTestRegistry(list func() ([]string, error), open func(string) (Device, error), opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)
	r.list = list
	r.open = open
	return r
}

// NewTestKeyboard creates a KeyboardDevice reading from getKey.
func NewTestKeyboard(km Keymap, getKey func() (rune, keyboard.Key, error), closeFn func()) *KeyboardDevice {
	return newKeyboardDevice(km, getKey, closeFn)
}
