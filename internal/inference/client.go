package inference

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"

	"voxchat/internal/chat"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-2.0-flash-exp:free"

	noResponse = "No response from AI"
)

// Credentials hands out the current API key. It is consulted on every call.
type Credentials interface {
	Get() string
}

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Referer    string
	Title      string
}

type Client struct {
	api   openai.Client
	creds Credentials
	model string
}

func NewClient(creds Credentials, opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.Title == "" {
		opt.Title = "Voice Assistant"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(opt.BaseURL),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", opt.Title),
	}
	if opt.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(opt.HTTPClient))
	}
	if opt.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", opt.Referer))
	}

	return &Client{
		api:   openai.NewClient(opts...),
		creds: creds,
		model: opt.Model,
	}
}

// Complete sends history as the prompt and returns the assistant's reply.
// It performs exactly one request and never retries.
func (c *Client) Complete(ctx context.Context, history []chat.Message) (string, error) {
	key := c.creds.Get()
	if key == "" {
		return "", &AuthError{}
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	log.Debug("Calling chat completion", "model", c.model, "messages", len(messages))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}, option.WithAPIKey(key))
	if err != nil {
		return "", asInferenceError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &InferenceError{Status: http.StatusOK, Message: noResponse}
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &InferenceError{Status: http.StatusOK, Message: noResponse}
	}

	return content, nil
}

// asInferenceError picks the best diagnostic available: the server's own
// message, then the status code, then the transport error.
func asInferenceError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = gjson.Get(apiErr.RawJSON(), "error.message").String()
		}
		if msg == "" {
			msg = fmt.Sprintf("API request failed: %d", apiErr.StatusCode)
		}
		return &InferenceError{Status: apiErr.StatusCode, Message: msg}
	}

	return &InferenceError{Message: fmt.Sprintf("chat completion: %v", err)}
}
