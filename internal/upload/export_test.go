package upload

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// HTTPDoer exposes httpDoer for tests.
type HTTPDoer = httpDoer

// OpenAIClient exposes openAIClient for tests.
type OpenAIClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// NewTestResponder creates a responder over a fake client.
func NewTestResponder(c OpenAIClient, opts ...ResponderOption) *OpenAIResponder {
	return newOpenAIResponder(c, opts...)
}

// HistoryLen reports the number of remembered messages.
func (r *OpenAIResponder) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// ClassifyError exposes classifyError for tests.
var ClassifyError = classifyError

// Compile-time check that *http.Client satisfies HTTPDoer.
var _ HTTPDoer = (*http.Client)(nil)
