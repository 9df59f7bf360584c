package types

// ChatRequest is the body of POST /chat and of a /stream text frame
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse reports one turn
type ChatResponse struct {
	Answer             string `json:"answer"`
	SessionID          string `json:"session_id"`
	MemoryBufferLength int    `json:"memory_buffer_length"`
	MemoryContent      string `json:"memory_content"`
}

// DeleteSessionResponse reports DELETE /session/:id
type DeleteSessionResponse struct {
	Deleted   bool   `json:"deleted"`
	SessionID string `json:"session_id"`
}

// HealthResponse reports GET /health
type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	Uptime         string `json:"uptime,omitempty"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error     string `json:"error"`
	SessionID string `json:"session_id,omitempty"`
}

// WSMessage types
const (
	WSTypeAnswer = "answer"
	WSTypeError  = "error"
)

// WSMessage is one server frame on /stream
type WSMessage struct {
	Type string `json:"type"`
	*ChatResponse
	Error string `json:"error,omitempty"`
}
