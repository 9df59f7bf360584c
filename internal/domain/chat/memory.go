package chat

// Message roles stored in the memory buffer
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NoMemory is reported as memory content before anything was summarized
const NoMemory = "No memory yet"

// Message is one entry in the conversation buffer
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is a session's conversational state: a running summary plus the
// raw message buffer. Values are treated as immutable; use the With
// methods to derive updated copies.
type Memory struct {
	Summary  string    `json:"summary"`
	Messages []Message `json:"messages"`
}

// BufferLength returns the number of buffered messages
func (m Memory) BufferLength() int {
	return len(m.Messages)
}

// Content returns the summary, or NoMemory when there is none
func (m Memory) Content() string {
	if m.Summary == "" {
		return NoMemory
	}
	return m.Summary
}

// WithExchange returns a copy with one question/answer pair appended
func (m Memory) WithExchange(question, answer string) Memory {
	msgs := make([]Message, len(m.Messages), len(m.Messages)+2)
	copy(msgs, m.Messages)
	msgs = append(msgs,
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: answer},
	)
	return Memory{Summary: m.Summary, Messages: msgs}
}

// WithSummary returns a copy with the summary replaced
func (m Memory) WithSummary(summary string) Memory {
	msgs := make([]Message, len(m.Messages))
	copy(msgs, m.Messages)
	return Memory{Summary: summary, Messages: msgs}
}

// Window returns the last n messages, or all of them when n <= 0
func (m Memory) Window(n int) []Message {
	if n <= 0 || n >= len(m.Messages) {
		return m.Messages
	}
	return m.Messages[len(m.Messages)-n:]
}
