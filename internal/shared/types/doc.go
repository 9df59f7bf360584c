// Package types defines the JSON wire types of the HTTP and WebSocket APIs.
//
// Request Types:
//   - ChatRequest: a question, optionally bound to an existing session
//
// Response Types:
//   - ChatResponse: answer plus session memory stats
//   - DeleteSessionResponse, HealthResponse, ErrorResponse
//   - WSMessage: one server frame on /stream
package types
