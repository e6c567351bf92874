// Package controller picks the input device that drives the application.
//
// Selection runs a list of strategies in order: a configured device path,
// then an interactive race in which the first button-capable device to
// report a press wins. The terminal keyboard is an alternative strategy
// for machines without a gamepad.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/input"
)

// Registry is the subset of input.Registry the strategies need.
type Registry interface {
	Open(path string) (input.Device, error)
	ButtonCapable() ([]input.Device, error)
}

// Strategy produces a controller or reports errSkip to let the next
// strategy try.
type Strategy interface {
	Name() string
	Select(ctx context.Context) (input.Device, error)
}

// Selector evaluates strategies in order.
type Selector struct {
	strategies []Strategy
	logger     zerolog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Selector) {
		s.logger = l.With().Str("component", "controller").Logger()
	}
}

// NewSelector creates a Selector over the given strategies.
func NewSelector(strategies []Strategy, opts ...Option) *Selector {
	s := &Selector{
		strategies: strategies,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the first device a strategy produces. The caller owns
// the returned device. ErrNoDeviceFound is returned when every strategy
// is exhausted; ctx errors are returned as-is.
func (s *Selector) Select(ctx context.Context) (input.Device, error) {
	for _, st := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := st.Select(ctx)
		if err == nil {
			s.logger.Info().
				Str("strategy", st.Name()).
				Str("device", d.Name()).
				Str("path", d.Path()).
				Msg("controller selected")
			return d, nil
		}
		if !errors.Is(err, errSkip) {
			return nil, err
		}
		s.logger.Debug().Str("strategy", st.Name()).Msg("strategy produced no controller")
	}
	return nil, ErrNoDeviceFound
}

// ---------------------------------------------------------------------------
// ConfiguredPath
// ---------------------------------------------------------------------------

// ConfiguredPath opens a fixed device node. An empty path or a failed open
// falls through to the next strategy.
type ConfiguredPath struct {
	Path     string
	Registry Registry
	Logger   zerolog.Logger
}

func (c *ConfiguredPath) Name() string { return "configured-path" }

func (c *ConfiguredPath) Select(ctx context.Context) (input.Device, error) {
	if c.Path == "" {
		return nil, errSkip
	}
	d, err := c.Registry.Open(c.Path)
	if err != nil {
		c.Logger.Warn().Err(err).Str("path", c.Path).Msg("configured controller unavailable, falling back to detection")
		return nil, errSkip
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Keyboard
// ---------------------------------------------------------------------------

// Keyboard uses the controlling terminal as the controller.
type Keyboard struct {
	Keymap input.Keymap
	Open   func(input.Keymap) (input.Device, error)
}

// NewKeyboard returns a Keyboard strategy over the real terminal.
func NewKeyboard(km input.Keymap) *Keyboard {
	return &Keyboard{
		Keymap: km,
		Open: func(km input.Keymap) (input.Device, error) {
			return input.OpenKeyboard(km)
		},
	}
}

func (k *Keyboard) Name() string { return "keyboard" }

func (k *Keyboard) Select(ctx context.Context) (input.Device, error) {
	d, err := k.Open(k.Keymap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDeviceFound, err)
	}
	return d, nil
}
