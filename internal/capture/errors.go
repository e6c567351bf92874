package capture

import "errors"

var (
	// ErrStart indicates the audio source could not be opened.
	ErrStart = errors.New("capture start failed")

	// ErrStopTimeout indicates the worker did not exit within the join
	// timeout. The worker is abandoned.
	ErrStopTimeout = errors.New("capture worker did not stop in time")

	// ErrWorkerFailed indicates the worker ended on a read error.
	ErrWorkerFailed = errors.New("capture worker failed")

	// ErrEmptyCapture indicates the worker exited cleanly without audio.
	ErrEmptyCapture = errors.New("nothing was recorded")

	// ErrCaptureActive indicates Start was called while a worker runs.
	ErrCaptureActive = errors.New("capture already in progress")

	// ErrNotActive indicates Stop was called on a worker that was already stopped.
	ErrNotActive = errors.New("capture worker not active")

	// ErrOverflow is returned by a Source when input samples were dropped.
	// The accompanying chunk is still valid.
	ErrOverflow = errors.New("input overflowed")

	// ErrInvalidFormat indicates unusable stream parameters.
	ErrInvalidFormat = errors.New("invalid capture format")
)
