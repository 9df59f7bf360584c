package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/config"
)

// SummaryModel answers questions through a Completer and keeps a rolling
// conversation summary as memory. It implements chat.ConversationModel.
type SummaryModel struct {
	completer Completer
	prompts   *Prompts
	cleaner   *chat.Cleaner
	logger    *zap.Logger
}

// NewSummaryModel wires a completer to a prompt set
func NewSummaryModel(completer Completer, prompts *Prompts, logger *zap.Logger) *SummaryModel {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryModel{
		completer: completer,
		prompts:   prompts,
		cleaner:   chat.NewCleaner(),
		logger:    logger.Named("model"),
	}
}

// New builds the model selected by cfg
func New(cfg config.ModelConfig, logger *zap.Logger) (*SummaryModel, error) {
	prompts, err := LoadPrompts(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	completer, err := NewCompleter(cfg, NewHTTPClient(cfg.Timeout, 2, logger))
	if err != nil {
		return nil, err
	}
	return NewSummaryModel(completer, prompts, logger), nil
}

// NewCompleter returns the backend named by cfg.Provider
func NewCompleter(cfg config.ModelConfig, httpClient *http.Client) (Completer, error) {
	settings := Settings{
		Model:       cfg.Name,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg.BaseURL, cfg.Key(), httpClient, settings), nil
	case config.ProviderAnthropic:
		baseURL := cfg.BaseURL
		if strings.Contains(baseURL, "groq.com") {
			// The Groq default only applies to the OpenAI-compatible backend
			baseURL = ""
		}
		return NewAnthropicCompleter(baseURL, cfg.Key(), httpClient, settings), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// Generate implements chat.ConversationModel. The answer call must
// succeed; a failed summary update keeps the previous summary and still
// records the exchange.
func (m *SummaryModel) Generate(ctx context.Context, contextText string, memory chat.Memory, question string) (string, chat.Memory, error) {
	start := time.Now()

	prompt, err := m.prompts.Answer(AnswerVars{
		Context:  contextText,
		Memory:   memory.Content(),
		Question: question,
	})
	if err != nil {
		return "", memory, err
	}

	history := memory.Window(m.prompts.HistoryWindow)
	messages := make([]chat.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: prompt})

	answer, err := m.completer.Complete(ctx, m.prompts.System, messages)
	if err != nil {
		return "", memory, err
	}

	// Reasoning traces never enter memory
	answer = m.cleaner.Clean(answer)
	if answer == "" {
		return "", memory, ErrEmptyCompletion
	}
	updated := memory.WithExchange(question, answer)
	summary, err := m.summarize(ctx, memory.Summary, updated.Window(2))
	if err != nil {
		m.logger.Warn("summary update failed, keeping previous summary",
			zap.String("backend", m.completer.Name()),
			zap.Error(err),
		)
	} else {
		updated = updated.WithSummary(summary)
	}

	m.logger.Debug("generated answer",
		zap.String("backend", m.completer.Name()),
		zap.Int("context_chars", len(contextText)),
		zap.Int("history", len(history)),
		zap.Duration("duration", time.Since(start)),
	)
	return answer, updated, nil
}

func (m *SummaryModel) summarize(ctx context.Context, previous string, lines []chat.Message) (string, error) {
	prompt, err := m.prompts.Summary(SummaryVars{
		Summary:  previous,
		NewLines: FormatLines(lines),
	})
	if err != nil {
		return "", err
	}

	summary, err := m.completer.Complete(ctx, "", []chat.Message{{Role: chat.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return m.cleaner.Clean(summary), nil
}
