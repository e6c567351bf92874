package input

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// PreferredNameKeywords mark device names that look like game controllers.
var PreferredNameKeywords = []string{"gamepad", "joystick", "controller"}

// listFn lists candidate device node paths.
type listFn func() ([]string, error)

// openFn opens a device node.
type openFn func(path string) (Device, error)

// Registry enumerates input devices and classifies them by the key codes
// they can emit.
type Registry struct {
	list      listFn
	open      openFn
	reference []uint16
	logger    zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithReference sets the codes that make a device button-capable.
func WithReference(codes []uint16) RegistryOption {
	return func(r *Registry) {
		if len(codes) > 0 {
			r.reference = slices.Clone(codes)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l.With().Str("component", "input").Logger()
	}
}

// NewRegistry creates a Registry backed by evdev.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		list:      listEvdevPaths,
		open:      openEvdev,
		reference: slices.Clone(DefaultReference),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open opens a single device node.
func (r *Registry) Open(path string) (Device, error) {
	return r.open(path)
}

// Enumerate opens every device node it can. Nodes that fail to open
// (permissions, device gone) are skipped; only a listing failure is
// returned. The caller owns the returned devices.
func (r *Registry) Enumerate() ([]Device, error) {
	paths, err := r.list()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}

	devices := make([]Device, 0, len(paths))
	for _, p := range paths {
		d, err := r.open(p)
		if err != nil {
			r.logger.Debug().Err(err).Str("path", p).Msg("skipping input device")
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Probe returns the set of key codes d can emit. Any probe error yields
// an empty set.
func (r *Registry) Probe(d Device) map[uint16]bool {
	codes, err := d.KeyCodes()
	if err != nil {
		r.logger.Debug().Err(err).Str("path", d.Path()).Msg("capability probe failed")
		return map[uint16]bool{}
	}
	set := make(map[uint16]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// IsButtonCapable reports whether d emits any code of the reference set.
func (r *Registry) IsButtonCapable(d Device) bool {
	caps := r.Probe(d)
	for _, c := range r.reference {
		if caps[c] {
			return true
		}
	}
	return false
}

// ButtonCapable enumerates and keeps only button-capable devices.
// Every other device is closed before returning.
func (r *Registry) ButtonCapable() ([]Device, error) {
	all, err := r.Enumerate()
	if err != nil {
		return nil, err
	}

	var kept []Device
	for _, d := range all {
		if r.IsButtonCapable(d) {
			kept = append(kept, d)
			continue
		}
		_ = d.Close()
	}
	return kept, nil
}

// WithButton returns the first device able to emit code, closing all
// others.
func (r *Registry) WithButton(code uint16) (Device, error) {
	all, err := r.Enumerate()
	if err != nil {
		return nil, err
	}

	var found Device
	for _, d := range all {
		if found == nil && r.Probe(d)[code] {
			found = d
			continue
		}
		_ = d.Close()
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", ButtonName(code), ErrNoCapableDevice)
	}
	return found, nil
}

// DeviceInfo summarizes a device for listings.
type DeviceInfo struct {
	Name          string
	Path          string
	ButtonCapable bool
	Preferred     bool
	Buttons       []string
}

// Describe enumerates, summarizes and closes every device.
func (r *Registry) Describe() ([]DeviceInfo, error) {
	all, err := r.Enumerate()
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(all))
	for _, d := range all {
		caps := r.Probe(d)
		info := DeviceInfo{
			Name:      d.Name(),
			Path:      d.Path(),
			Preferred: hasPreferredName(d.Name()),
		}
		for _, c := range r.reference {
			if caps[c] {
				info.ButtonCapable = true
				info.Buttons = append(info.Buttons, ButtonName(c))
			}
		}
		infos = append(infos, info)
		_ = d.Close()
	}
	return infos, nil
}

func hasPreferredName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range PreferredNameKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
