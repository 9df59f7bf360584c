// Package retrieval is the HTTP client for the document search service.
//
// The service exposes POST /search taking {"query", "k"} and returning
// {"documents": [{"text", "score"}]}, ordered by relevance. Requests carry
// the caller's trace id and are retried on 5xx and 429.
package retrieval
