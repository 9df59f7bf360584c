package llm

import (
	"context"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

// Completer sends one chat request to a model backend and returns the text
// of the reply. messages alternate user/assistant and end with a user
// message.
type Completer interface {
	Complete(ctx context.Context, system string, messages []chat.Message) (string, error)
	Name() string
}

// Settings are the sampling parameters shared by all backends
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}
