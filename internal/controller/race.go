package controller

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-chatter/internal/input"
)

// DefaultDetectTimeout is how long the race waits for a press.
const DefaultDetectTimeout = 15 * time.Second

// readerGrace bounds the wait for readers after their devices are closed.
// A reader still blocked after it is abandoned; it exits on its next
// event or error.
const readerGrace = 250 * time.Millisecond

// Race enumerates button-capable devices and returns the first one on
// which a button is pressed.
//
// One goroutine reads each candidate. The first goroutine to deliver a
// down edge on the shared winner channel wins; ties are broken by arrival
// order on that channel. Every loser is closed, which unblocks its
// reader. Select returns within Timeout plus readerGrace even when a
// closed device keeps its reader blocked.
type Race struct {
	Registry Registry
	Timeout  time.Duration
	Prompt   io.Writer // optional user-facing instructions
	Logger   zerolog.Logger
}

func (r *Race) Name() string { return "press-any-button" }

func (r *Race) Select(ctx context.Context) (input.Device, error) {
	candidates, err := r.Registry.ButtonCapable()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDeviceFound, err)
	}
	if len(candidates) == 0 {
		r.Logger.Warn().Msg("no button-capable input devices found")
		return nil, errSkip
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultDetectTimeout
	}

	if r.Prompt != nil {
		fmt.Fprintf(r.Prompt, "Press any button on the controller you want to use (%d candidates, %s)...\n",
			len(candidates), timeout)
	}
	for _, d := range candidates {
		r.Logger.Debug().Str("device", d.Name()).Str("path", d.Path()).Msg("race candidate")
	}

	winner, err := FirstPress(ctx, candidates, timeout, input.ButtonEvent.IsDown)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		r.Logger.Warn().Dur("timeout", timeout).Msg("no button pressed before timeout")
		return nil, errSkip
	}
	return winner, nil
}

// FirstPress reads all candidates concurrently and returns the first one
// reporting an event accepted by match, or nil on timeout. Every other
// candidate is closed. Only a cancellation of ctx itself is an error.
//
// The winner's reader has always returned. Readers of closed candidates
// are waited for at most readerGrace.
func FirstPress(ctx context.Context, candidates []input.Device, timeout time.Duration, match func(input.ButtonEvent) bool) (input.Device, error) {
	raceCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	winners := make(chan int, len(candidates))
	var g errgroup.Group
	for i, d := range candidates {
		g.Go(func() error {
			for {
				ev, err := d.ReadEvent()
				if err != nil {
					return nil
				}
				if match(ev) {
					winners <- i
					return nil
				}
			}
		})
	}

	readersDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(readersDone)
	}()

	winner := -1
	select {
	case winner = <-winners:
	case <-raceCtx.Done():
	case <-readersDone:
		// Every reader failed; a late winner may still be buffered.
		select {
		case winner = <-winners:
		default:
		}
	}

	for i, d := range candidates {
		if i != winner {
			_ = d.Close()
		}
	}
	grace := time.NewTimer(readerGrace)
	defer grace.Stop()
	select {
	case <-readersDone:
	case <-grace.C:
	}

	if winner < 0 {
		return nil, ctx.Err()
	}
	return candidates[winner], nil
}
