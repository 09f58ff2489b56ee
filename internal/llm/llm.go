// Package llm builds role-tagged prompt messages and sends them to a
// single configured chat-completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultBaseURL is the DeepSeek OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.deepseek.com"
	// DefaultModel is the default chat model.
	DefaultModel = "deepseek-chat"
	// DefaultTemperature is the sampling temperature sent with every request.
	DefaultTemperature = 0.8
	// DefaultMaxTokens bounds the response size; Recovery tolerates the
	// truncation this can cause.
	DefaultMaxTokens = 4000
)

// Role tags a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged prompt message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RemoteServiceError indicates a non-success HTTP status or a malformed
// envelope from the remote completion endpoint.
type RemoteServiceError struct {
	StatusCode int    // zero when the failure happened before a status was received
	Message    string // upstream error message when present
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("remote completion service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote completion service error: %s", e.Message)
}

// Config holds the settings for the remote text client. It is passed in
// explicitly rather than read from globals so tests can inject doubles.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Client sends prompt messages to one configured chat-completions
// endpoint. No retry is performed at this layer.
type Client struct {
	oa          openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewClient creates a new remote text client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key is required (set DEEPSEEK_API_KEY or ai.deepseek.api_key in config)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	oa := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	)

	return &Client{
		oa:          oa,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// SendCompletion sends the ordered message sequence and returns the raw
// text of the first choice. Failures surface as *RemoteServiceError.
func (c *Client) SendCompletion(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParamUnions(messages),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	resp, err := c.oa.Chat.Completions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return "", &RemoteServiceError{StatusCode: apierr.StatusCode, Message: apierr.Message}
		}
		return "", &RemoteServiceError{Message: err.Error()}
	}

	if len(resp.Choices) == 0 {
		return "", &RemoteServiceError{Message: "completion envelope contained no choices"}
	}

	return resp.Choices[0].Message.Content, nil
}

func toParamUnions(messages []Message) []openai.ChatCompletionMessageParamUnion {
	unions := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			unions = append(unions, openai.SystemMessage(m.Content))
		case RoleAssistant:
			unions = append(unions, openai.AssistantMessage(m.Content))
		default:
			unions = append(unions, openai.UserMessage(m.Content))
		}
	}
	return unions
}
