package chat

import "context"

// Document is one retrieval hit
type Document struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// DocumentRetriever searches the knowledge base. An empty result is not an
// error.
type DocumentRetriever interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// ConversationModel produces an answer from the retrieved context, the
// session's memory and the question. It returns the memory to keep for the
// next turn; the input memory must not be modified.
type ConversationModel interface {
	Generate(ctx context.Context, context string, memory Memory, question string) (string, Memory, error)
}
