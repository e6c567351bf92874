package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"github.com/alnah/go-chatter/internal/apierr"
)

// OpenAI defaults.
const (
	DefaultTranscribeModel = openai.Whisper1
	DefaultChatModel       = openai.GPT4oMini
	DefaultVoice           = string(openai.VoiceAlloy)
	DefaultSystemPrompt    = "You are a friendly voice assistant. Answer in one to three short spoken sentences, in the language you are addressed in."

	// historyTurns is how many past exchanges are sent with each question.
	historyTurns = 6
)

// openAIClient is the part of *openai.Client the responder uses.
type openAIClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Uploader     = (*OpenAIResponder)(nil)
	_ openAIClient = (*openai.Client)(nil)
)

// OpenAIResponder answers a clip locally through OpenAI: speech to text,
// a chat completion, then text to speech (mp3).
type OpenAIResponder struct {
	client          openAIClient
	transcribeModel string
	chatModel       string
	voice           openai.SpeechVoice
	systemPrompt    string
	timeout         time.Duration
	logger          zerolog.Logger

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

// ResponderOption configures an OpenAIResponder.
type ResponderOption func(*OpenAIResponder)

// WithChatModel sets the chat completion model.
func WithChatModel(model string) ResponderOption {
	return func(r *OpenAIResponder) {
		if model != "" {
			r.chatModel = model
		}
	}
}

// WithVoice sets the speech voice.
func WithVoice(voice string) ResponderOption {
	return func(r *OpenAIResponder) {
		if voice != "" {
			r.voice = openai.SpeechVoice(voice)
		}
	}
}

// WithSystemPrompt sets the assistant instructions.
func WithSystemPrompt(prompt string) ResponderOption {
	return func(r *OpenAIResponder) {
		if prompt != "" {
			r.systemPrompt = prompt
		}
	}
}

// WithResponderTimeout bounds the three calls together.
func WithResponderTimeout(d time.Duration) ResponderOption {
	return func(r *OpenAIResponder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithResponderLogger sets the logger.
func WithResponderLogger(l zerolog.Logger) ResponderOption {
	return func(r *OpenAIResponder) {
		r.logger = l.With().Str("component", "openai").Logger()
	}
}

// NewOpenAIResponder creates a responder over an OpenAI client.
func NewOpenAIResponder(client *openai.Client, opts ...ResponderOption) *OpenAIResponder {
	return newOpenAIResponder(client, opts...)
}

func newOpenAIResponder(client openAIClient, opts ...ResponderOption) *OpenAIResponder {
	r := &OpenAIResponder{
		client:          client,
		transcribeModel: DefaultTranscribeModel,
		chatModel:       DefaultChatModel,
		voice:           openai.SpeechVoice(DefaultVoice),
		systemPrompt:    DefaultSystemPrompt,
		timeout:         DefaultTimeout,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upload runs transcription, chat and speech synthesis once each.
func (r *OpenAIResponder) Upload(ctx context.Context, audio []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tr, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.transcribeModel,
		FilePath: DefaultFilename,
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return nil, classifyError("transcription", err)
	}
	question := strings.TrimSpace(tr.Text)
	if question == "" {
		return nil, fmt.Errorf("no speech recognized: %w", apierr.ErrNoContent)
	}
	r.logger.Info().Str("text", question).Msg("heard")

	messages := append([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: r.systemPrompt},
	}, r.recent()...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	chat, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.chatModel,
		Messages: messages,
	})
	if err != nil {
		return nil, classifyError("chat completion", err)
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("empty chat answer: %w", apierr.ErrNoContent)
	}
	answer := strings.TrimSpace(chat.Choices[0].Message.Content)
	r.logger.Info().Str("text", answer).Msg("answering")

	speech, err := r.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          answer,
		Voice:          r.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, classifyError("speech", err)
	}
	defer func() { _ = speech.Close() }()

	data, err := io.ReadAll(io.LimitReader(speech, maxResponseBytes))
	if err != nil {
		return nil, transportError(fmt.Errorf("read speech: %w", err))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty speech: %w", apierr.ErrNoContent)
	}

	r.remember(question, answer)
	return data, nil
}

func (r *OpenAIResponder) recent() []openai.ChatCompletionMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]openai.ChatCompletionMessage, len(r.history))
	copy(out, r.history)
	return out
}

func (r *OpenAIResponder) remember(question, answer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: answer},
	)
	if over := len(r.history) - 2*historyTurns; over > 0 {
		r.history = r.history[over:]
	}
}

// classifyError converts OpenAI client errors to apierr errors.
func classifyError(stage string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", stage, apierr.NewStatusError(apiErr.HTTPStatusCode, []byte(apiErr.Message)))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := string(reqErr.Body)
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return fmt.Errorf("%s: %w", stage, apierr.NewStatusError(reqErr.HTTPStatusCode, []byte(body)))
	}
	return fmt.Errorf("%s: %w", stage, transportError(err))
}
