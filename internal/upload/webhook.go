package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/apierr"
)

// Multipart defaults.
const (
	DefaultField    = "audio"
	DefaultFilename = "recording.wav"
)

// ErrInvalidURL indicates the webhook URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid upload URL")

// Webhook posts the clip as a multipart form file and returns the
// response body.
type Webhook struct {
	url      string
	field    string
	filename string
	client   httpDoer
	logger   zerolog.Logger
}

var _ Uploader = (*Webhook)(nil)

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithField sets the multipart field name.
func WithField(name string) WebhookOption {
	return func(w *Webhook) {
		if name != "" {
			w.field = name
		}
	}
}

// WithFilename sets the multipart file name.
func WithFilename(name string) WebhookOption {
	return func(w *Webhook) {
		if name != "" {
			w.filename = name
		}
	}
}

// WithTimeout sets the round trip timeout of the default client.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.client = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c httpDoer) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) WebhookOption {
	return func(w *Webhook) {
		w.logger = l.With().Str("component", "upload").Logger()
	}
}

// NewWebhook creates a Webhook posting to rawURL.
func NewWebhook(rawURL string, opts ...WebhookOption) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}

	w := &Webhook{
		url:      u.String(),
		field:    DefaultField,
		filename: DefaultFilename,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Upload sends one request. It does not retry.
func (w *Webhook) Upload(ctx context.Context, audio []byte, contentType string) ([]byte, error) {
	body, formType, err := w.form(audio, contentType)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	w.logger.Debug().Str("url", w.url).Int("bytes", len(audio)).Msg("uploading clip")

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.NewStatusError(resp.StatusCode, data)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("HTTP %d with empty body: %w", resp.StatusCode, apierr.ErrNoContent)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes: %w", maxResponseBytes, apierr.ErrBadRequest)
	}

	w.logger.Info().
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("response received")
	return data, nil
}

// form builds the multipart body with an explicit part content type.
func (w *Webhook) form(audio []byte, contentType string) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, w.field, w.filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio to form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}
