package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/euel88/law-chatbot/internal/logger"
)

const (
	// DefaultModel is the chat model used when none is configured
	DefaultModel = "gpt-4"
	// DefaultTemperature keeps translations close to literal
	DefaultTemperature float32 = 0.3
	// DefaultMaxTokens bounds a single translation response
	DefaultMaxTokens = 2000
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 2
	// BaseRetryDelay is the first backoff delay; it doubles per attempt
	BaseRetryDelay = 2 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// ErrNoAPIKey is returned when a chat backend is requested without credentials.
var ErrNoAPIKey = errors.New("translation backend requires an API key")

var errEmptyResponse = errors.New("empty translation response")

// Backend translates one piece of text between two language codes.
type Backend interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ChatGenerator is the part of an eino chat model the backend needs.
type ChatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoBackendConfig holds configuration options for creating an EinoBackend
type EinoBackendConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// EinoBackend translates through an OpenAI-compatible chat model.
type EinoBackend struct {
	chat       ChatGenerator
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewEinoBackend creates the OpenAI chat model and wraps it as a Backend.
func NewEinoBackend(ctx context.Context, cfg EinoBackendConfig) (*EinoBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}

	temperature := DefaultTemperature
	maxTokens := DefaultMaxTokens
	chatModelConfig := &openai.ChatModelConfig{
		Model:       modelName,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.Timeout,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	b := NewEinoBackendWithModel(chatModel, cfg.MaxRetries)
	b.model = modelName
	logger.Info("translation backend ready", logger.String("model", modelName), logger.String("baseURL", cfg.BaseURL))
	return b, nil
}

// NewEinoBackendWithModel wraps an existing chat model. maxRetries <= 0 uses the default.
func NewEinoBackendWithModel(chat ChatGenerator, maxRetries int) *EinoBackend {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &EinoBackend{
		chat:       chat,
		model:      DefaultModel,
		maxRetries: maxRetries,
		retryDelay: BaseRetryDelay,
	}
}

// SetRetryDelay overrides the base backoff delay.
func (b *EinoBackend) SetRetryDelay(d time.Duration) {
	b.retryDelay = d
}

// Translate sends text to the chat model, retrying transient failures with
// exponential backoff.
func (b *EinoBackend) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(sourceLang, targetLang)),
		schema.UserMessage(text),
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			delay := b.backoffDelay(attempt)
			logger.Debug("retrying translation", logger.Int("attempt", attempt), logger.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := b.chat.Generate(ctx, messages)
		if err == nil {
			if resp == nil || strings.TrimSpace(resp.Content) == "" {
				return "", errEmptyResponse
			}
			return strings.TrimSpace(resp.Content), nil
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryableError(err) {
			break
		}
	}
	return "", fmt.Errorf("translation failed: %w", lastErr)
}

// buildSystemPrompt asks for a bare translation with notation left untouched.
func buildSystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(`You are a professional translator. Translate the user's text from %s to %s.
Rules:
- Keep mathematical formulas, numbers, units and variable names exactly as written.
- Preserve line breaks.
- Output only the translated text, without explanations, notes or quotation marks.`,
		LanguageName(sourceLang), LanguageName(targetLang))
}

// isRetryableError reports whether err looks transient: rate limits, server
// errors and network failures. Authentication and request errors are final.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, final := range []string{"401", "403", "unauthorized", "invalid api key", "invalid_api_key", "400", "invalid request"} {
		if strings.Contains(msg, final) {
			return false
		}
	}
	for _, transient := range []string{"429", "rate limit", "500", "502", "503", "504", "server error",
		"connection", "timeout", "network", "eof", "reset by peer"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// backoffDelay doubles the base delay per attempt, capped at 30s.
func (b *EinoBackend) backoffDelay(attempt int) time.Duration {
	delay := b.retryDelay * time.Duration(1<<uint(attempt-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
