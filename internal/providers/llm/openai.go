package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

// ErrEmptyCompletion marks a reply with no usable text
var ErrEmptyCompletion = errors.New("model returned no text")

// OpenAICompleter talks to any OpenAI-compatible chat completions API.
// The default base URL points at Groq.
type OpenAICompleter struct {
	client   *openai.Client
	settings Settings
}

// NewOpenAICompleter creates a completer. An empty baseURL uses the
// SDK's default endpoint.
func NewOpenAICompleter(baseURL, apiKey string, httpClient *http.Client, settings Settings) *OpenAICompleter {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client, settings: settings}
}

// Name identifies the backend in logs
func (c *OpenAICompleter) Name() string {
	return "openai:" + c.settings.Model
}

// Complete implements Completer
func (c *OpenAICompleter) Complete(ctx context.Context, system string, messages []chat.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:               c.settings.Model,
		Messages:            buildOpenAIMessages(system, messages),
		Temperature:         openai.Float(c.settings.Temperature),
		MaxCompletionTokens: openai.Int(c.settings.MaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func buildOpenAIMessages(system string, messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
