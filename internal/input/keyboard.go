package input

import (
	"fmt"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
)

// KeyboardPath is the pseudo path reported by the terminal keyboard device.
const KeyboardPath = "tty"

// KeyboardDevice reads the controlling terminal in raw mode and reports
// presses as the keymap's codes: Enter or Space for start/stop, q, Esc or
// Ctrl-C for quit. Terminals have no release events, so only down edges
// are emitted.
type KeyboardDevice struct {
	keymap Keymap
	events chan ButtonEvent
	errs   chan error
	closed chan struct{}

	closeOnce sync.Once
	closeFn   func()
}

var _ Device = (*KeyboardDevice)(nil)

// getKeyFn matches keyboard.GetKey.
type getKeyFn func() (rune, keyboard.Key, error)

// OpenKeyboard puts the terminal in raw mode and starts reading keys.
func OpenKeyboard(km Keymap) (*KeyboardDevice, error) {
	if err := keyboard.Open(); err != nil {
		return nil, fmt.Errorf("open keyboard: %w", err)
	}
	return newKeyboardDevice(km, keyboard.GetKey, func() { keyboard.Close() }), nil
}

func newKeyboardDevice(km Keymap, getKey getKeyFn, closeFn func()) *KeyboardDevice {
	d := &KeyboardDevice{
		keymap:  km,
		events:  make(chan ButtonEvent),
		errs:    make(chan error, 1),
		closed:  make(chan struct{}),
		closeFn: closeFn,
	}
	go d.pump(getKey)
	return d
}

// pump forwards translated keys until the device is closed. A GetKey
// blocked at close time is left to return on its own.
func (d *KeyboardDevice) pump(getKey getKeyFn) {
	for {
		r, k, err := getKey()
		if err != nil {
			select {
			case d.errs <- err:
			case <-d.closed:
			}
			return
		}
		code, ok := d.translate(r, k)
		if !ok {
			continue
		}
		ev := ButtonEvent{Source: KeyboardPath, Code: code, Edge: EdgeDown, Time: time.Now()}
		select {
		case d.events <- ev:
		case <-d.closed:
			return
		}
	}
}

func (d *KeyboardDevice) translate(r rune, k keyboard.Key) (uint16, bool) {
	switch {
	case k == keyboard.KeyEnter || k == keyboard.KeySpace:
		return d.keymap.StartStop, true
	case k == keyboard.KeyEsc || k == keyboard.KeyCtrlC:
		return d.keymap.Quit, true
	case r == 'q' || r == 'Q':
		return d.keymap.Quit, true
	default:
		return 0, false
	}
}

func (d *KeyboardDevice) Name() string { return "keyboard" }
func (d *KeyboardDevice) Path() string { return KeyboardPath }

func (d *KeyboardDevice) KeyCodes() ([]uint16, error) {
	return []uint16{d.keymap.StartStop, d.keymap.Quit}, nil
}

func (d *KeyboardDevice) ReadEvent() (ButtonEvent, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case err := <-d.errs:
		return ButtonEvent{}, fmt.Errorf("read keyboard: %w", err)
	case <-d.closed:
		return ButtonEvent{}, ErrClosed
	}
}

// Close restores the terminal mode.
func (d *KeyboardDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.closeFn != nil {
			d.closeFn()
		}
	})
	return nil
}
