package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts()

	assert.Contains(t, p.System, "Your name is Echo.")
	assert.Equal(t, 6, p.HistoryWindow)

	out, err := p.Answer(AnswerVars{Context: "ctx-text", Memory: chat.NoMemory, Question: "who are you?"})
	require.NoError(t, err)
	assert.Contains(t, out, "CONTEXT:\nctx-text")
	assert.Contains(t, out, "MEMORY:\nNo memory yet")
	assert.Contains(t, out, "QUESTION:\nwho are you?")

	out, err = p.Summary(SummaryVars{Summary: "old", NewLines: "Human: hi\nEcho: hello"})
	require.NoError(t, err)
	assert.Contains(t, out, "Current summary:\nold")
	assert.Contains(t, out, "Human: hi\nEcho: hello")
}

func TestParsePromptsPartialOverride(t *testing.T) {
	p, err := ParsePrompts([]byte("system: You are a test bot.\nhistory_window: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, "You are a test bot.", p.System)
	assert.Equal(t, 2, p.HistoryWindow)

	// Templates fall back to the defaults
	out, err := p.Answer(AnswerVars{Context: "c", Memory: "m", Question: "q"})
	require.NoError(t, err)
	assert.Contains(t, out, "QUESTION:\nq")
}

func TestParsePromptsErrors(t *testing.T) {
	_, err := ParsePrompts([]byte("answer: \"{{.Context\"\n"))
	assert.Error(t, err)

	_, err = ParsePrompts([]byte("system: [unclosed\n"))
	assert.Error(t, err)
}

func TestLoadPrompts(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Contains(t, p.System, "Echo")

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("answer: \"Q={{.Question}}\"\n"), 0o600))

	p, err = LoadPrompts(path)
	require.NoError(t, err)
	out, err := p.Answer(AnswerVars{Question: "why?"})
	require.NoError(t, err)
	assert.Equal(t, "Q=why?", out)

	_, err = LoadPrompts(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatLines(t *testing.T) {
	out := FormatLines([]chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "Human: hi\nEcho: hello", out)
	assert.Empty(t, FormatLines(nil))
}
