package llm

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptFile is the YAML shape of a prompt set
type PromptFile struct {
	System        string `yaml:"system"`
	Answer        string `yaml:"answer"`
	Summary       string `yaml:"summary"`
	HistoryWindow int    `yaml:"history_window"`
}

// Prompts holds parsed templates
type Prompts struct {
	System        string
	answer        *template.Template
	summary       *template.Template
	HistoryWindow int
}

// AnswerVars fills the answer template
type AnswerVars struct {
	Context  string
	Memory   string
	Question string
}

// SummaryVars fills the summary template
type SummaryVars struct {
	Summary  string
	NewLines string
}

// DefaultPrompts returns the embedded prompt set
func DefaultPrompts() *Prompts {
	p, err := ParsePrompts(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return p
}

// LoadPrompts reads a prompt file. An empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return DefaultPrompts(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return ParsePrompts(data)
}

// ParsePrompts parses YAML over the embedded defaults, so a file may
// override only some keys.
func ParsePrompts(data []byte) (*Prompts, error) {
	var file PromptFile
	if err := yaml.Unmarshal(defaultPrompts, &file); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	answer, err := template.New("answer").Option("missingkey=error").Parse(file.Answer)
	if err != nil {
		return nil, fmt.Errorf("answer template: %w", err)
	}
	summary, err := template.New("summary").Option("missingkey=error").Parse(file.Summary)
	if err != nil {
		return nil, fmt.Errorf("summary template: %w", err)
	}

	return &Prompts{
		System:        strings.TrimSpace(file.System),
		answer:        answer,
		summary:       summary,
		HistoryWindow: file.HistoryWindow,
	}, nil
}

// Answer renders the per-turn user prompt
func (p *Prompts) Answer(vars AnswerVars) (string, error) {
	var sb strings.Builder
	if err := p.answer.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render answer prompt: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Summary renders the summarization prompt
func (p *Prompts) Summary(vars SummaryVars) (string, error) {
	var sb strings.Builder
	if err := p.summary.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render summary prompt: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// FormatLines renders messages as "Human: ..." / "Echo: ..." lines
func FormatLines(msgs []chat.Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch m.Role {
		case chat.RoleUser:
			sb.WriteString("Human: ")
		default:
			sb.WriteString("Echo: ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}
