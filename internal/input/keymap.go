package input

import "fmt"

// Action is what a mapped button press asks the application to do.
type Action int

const (
	ActionNone Action = iota
	ActionStartStop
	ActionQuit
)

// String returns the string representation of the Action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionStartStop:
		return "start-stop"
	case ActionQuit:
		return "quit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Keymap binds button codes to actions.
type Keymap struct {
	StartStop uint16
	Quit      uint16
}

// DefaultKeymap is BTN_SOUTH for start/stop and BTN_START for quit.
var DefaultKeymap = Keymap{StartStop: BtnSouth, Quit: BtnStart}

// Action returns the action bound to code. Quit wins if both are bound
// to the same code.
func (k Keymap) Action(code uint16) Action {
	switch code {
	case k.Quit:
		return ActionQuit
	case k.StartStop:
		return ActionStartStop
	default:
		return ActionNone
	}
}

// Validate reports an error when the keymap binds the same code twice.
func (k Keymap) Validate() error {
	if k.StartStop == k.Quit {
		return fmt.Errorf("start-stop and quit both bound to %s", ButtonName(k.Quit))
	}
	return nil
}
