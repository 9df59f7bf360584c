package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

// AnthropicCompleter talks to the Anthropic Messages API
type AnthropicCompleter struct {
	client   *anthropic.Client
	settings Settings
}

// NewAnthropicCompleter creates a completer. An empty baseURL uses the
// SDK's default endpoint.
func NewAnthropicCompleter(baseURL, apiKey string, httpClient *http.Client, settings Settings) *AnthropicCompleter {
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

	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{client: &client, settings: settings}
}

// Name identifies the backend in logs
func (c *AnthropicCompleter) Name() string {
	return "anthropic:" + c.settings.Model
}

// Complete implements Completer
func (c *AnthropicCompleter) Complete(ctx context.Context, system string, messages []chat.Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.settings.Model),
		Messages:    buildAnthropicMessages(messages),
		MaxTokens:   c.settings.MaxTokens,
		Temperature: anthropic.Float(c.settings.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func buildAnthropicMessages(messages []chat.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case chat.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
