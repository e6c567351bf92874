// Package upload sends a recorded clip to a remote service and returns the
// audio it answers with.
//
// Failures are classified into the apierr sentinels: ErrTransport when no
// response arrived, a *apierr.StatusError for non-success statuses, and
// ErrNoContent for an empty answer. Nothing is retried.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/alnah/go-chatter/internal/apierr"
)

// ContentTypeWAV is the content type of recorded clips.
const ContentTypeWAV = "audio/wav"

// DefaultTimeout bounds one upload round trip.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the size of an answer.
const maxResponseBytes = 64 << 20

// Uploader sends audio and returns the response audio.
type Uploader interface {
	Upload(ctx context.Context, audio []byte, contentType string) ([]byte, error)
}

// httpDoer abstracts HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// transportError wraps a failure that produced no HTTP response.
func transportError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %w", apierr.ErrTransport, apierr.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", apierr.ErrTransport, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
