package input

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Linux key codes from input-event-codes.h used by the button table.
const (
	KeyEsc   uint16 = 1
	KeyQ     uint16 = 16
	KeyEnter uint16 = 28
	KeySpace uint16 = 57

	BtnTrigger   uint16 = 0x120
	BtnThumb     uint16 = 0x121
	BtnThumb2    uint16 = 0x122
	BtnSouth     uint16 = 0x130
	BtnEast      uint16 = 0x131
	BtnC         uint16 = 0x132
	BtnNorth     uint16 = 0x133
	BtnWest      uint16 = 0x134
	BtnZ         uint16 = 0x135
	BtnTL        uint16 = 0x136
	BtnTR        uint16 = 0x137
	BtnTL2       uint16 = 0x138
	BtnTR2       uint16 = 0x139
	BtnSelect    uint16 = 0x13a
	BtnStart     uint16 = 0x13b
	BtnMode      uint16 = 0x13c
	BtnThumbL    uint16 = 0x13d
	BtnThumbR    uint16 = 0x13e
	BtnDpadUp    uint16 = 0x220
	BtnDpadDown  uint16 = 0x221
	BtnDpadLeft  uint16 = 0x222
	BtnDpadRight uint16 = 0x223
)

// buttonCodes maps accepted names (including aliases) to codes.
var buttonCodes = map[string]uint16{
	"KEY_ESC":        KeyEsc,
	"KEY_Q":          KeyQ,
	"KEY_ENTER":      KeyEnter,
	"KEY_SPACE":      KeySpace,
	"BTN_JOYSTICK":   BtnTrigger,
	"BTN_TRIGGER":    BtnTrigger,
	"BTN_THUMB":      BtnThumb,
	"BTN_THUMB2":     BtnThumb2,
	"BTN_GAMEPAD":    BtnSouth,
	"BTN_SOUTH":      BtnSouth,
	"BTN_A":          BtnSouth,
	"BTN_EAST":       BtnEast,
	"BTN_B":          BtnEast,
	"BTN_C":          BtnC,
	"BTN_NORTH":      BtnNorth,
	"BTN_X":          BtnNorth,
	"BTN_WEST":       BtnWest,
	"BTN_Y":          BtnWest,
	"BTN_Z":          BtnZ,
	"BTN_TL":         BtnTL,
	"BTN_TR":         BtnTR,
	"BTN_TL2":        BtnTL2,
	"BTN_TR2":        BtnTR2,
	"BTN_SELECT":     BtnSelect,
	"BTN_START":      BtnStart,
	"BTN_MODE":       BtnMode,
	"BTN_THUMBL":     BtnThumbL,
	"BTN_THUMBR":     BtnThumbR,
	"BTN_DPAD_UP":    BtnDpadUp,
	"BTN_DPAD_DOWN":  BtnDpadDown,
	"BTN_DPAD_LEFT":  BtnDpadLeft,
	"BTN_DPAD_RIGHT": BtnDpadRight,
}

// buttonNames holds the canonical display name per code.
var buttonNames = map[uint16]string{
	KeyEsc:       "KEY_ESC",
	KeyQ:         "KEY_Q",
	KeyEnter:     "KEY_ENTER",
	KeySpace:     "KEY_SPACE",
	BtnTrigger:   "BTN_TRIGGER",
	BtnThumb:     "BTN_THUMB",
	BtnThumb2:    "BTN_THUMB2",
	BtnSouth:     "BTN_SOUTH",
	BtnEast:      "BTN_EAST",
	BtnC:         "BTN_C",
	BtnNorth:     "BTN_NORTH",
	BtnWest:      "BTN_WEST",
	BtnZ:         "BTN_Z",
	BtnTL:        "BTN_TL",
	BtnTR:        "BTN_TR",
	BtnTL2:       "BTN_TL2",
	BtnTR2:       "BTN_TR2",
	BtnSelect:    "BTN_SELECT",
	BtnStart:     "BTN_START",
	BtnMode:      "BTN_MODE",
	BtnThumbL:    "BTN_THUMBL",
	BtnThumbR:    "BTN_THUMBR",
	BtnDpadUp:    "BTN_DPAD_UP",
	BtnDpadDown:  "BTN_DPAD_DOWN",
	BtnDpadLeft:  "BTN_DPAD_LEFT",
	BtnDpadRight: "BTN_DPAD_RIGHT",
}

// DefaultReference is the gamepad reference set: a device emitting any of
// these codes is considered button-capable.
var DefaultReference = []uint16{
	BtnSouth, BtnEast, BtnC, BtnNorth, BtnWest, BtnZ,
	BtnStart, BtnSelect, BtnMode,
	BtnTrigger, BtnThumb, BtnThumb2,
	BtnDpadUp, BtnDpadDown, BtnDpadLeft, BtnDpadRight,
}

// ParseButton resolves a button name (case-insensitive, BTN_ prefix
// optional) or a numeric code such as "0x13b" or "315".
func ParseButton(name string) (uint16, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	if s == "" {
		return 0, fmt.Errorf("empty button name: %w", ErrUnknownButton)
	}
	if code, ok := buttonCodes[s]; ok {
		return code, nil
	}
	if code, ok := buttonCodes["BTN_"+s]; ok {
		return code, nil
	}
	if code, err := strconv.ParseUint(s, 0, 16); err == nil && code > 0 {
		return uint16(code), nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownButton)
}

// ParseButtonList parses a comma-separated list of button names.
func ParseButtonList(list string) ([]uint16, error) {
	var codes []uint16
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		code, err := ParseButton(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// ButtonName returns the canonical name of a code, or its hex form.
func ButtonName(code uint16) string {
	if name, ok := buttonNames[code]; ok {
		return name
	}
	return fmt.Sprintf("code 0x%x", code)
}
