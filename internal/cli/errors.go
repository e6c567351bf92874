package cli

import "errors"

// CLI-specific sentinel errors.
// These are setup errors that don't belong to domain packages.

var (
	// ErrConfig indicates the configuration could not be loaded.
	ErrConfig = errors.New("configuration error")

	// ErrAPIKeyMissing indicates OPENAI_API_KEY is not set for the openai backend.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrUploadURLMissing indicates the webhook backend has no upload-url.
	ErrUploadURLMissing = errors.New("upload-url not set (chatter config set upload-url <url>)")

	// ErrInvalidDuration indicates a duration flag is out of range.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrChecksFailed indicates doctor found at least one problem.
	ErrChecksFailed = errors.New("setup checks failed")
)
