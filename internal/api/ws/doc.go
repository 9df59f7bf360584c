// Package ws serves chat turns over a WebSocket.
//
// Each client text frame is a JSON chat request:
//
//	{"question": "When does the society meet?", "session_id": "sess_..."}
//
// and is answered with one frame carrying the /chat response body plus a
// type field:
//
//	{"type": "answer", "answer": "...", "session_id": "...", ...}
//	{"type": "error", "error": "question is empty"}
//
// Turns on one connection run sequentially.
package ws
