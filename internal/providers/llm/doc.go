// Package llm implements chat.ConversationModel on top of hosted language
// models.
//
// A Completer sends one request to a backend: OpenAICompleter speaks the
// OpenAI chat completions protocol (Groq by default), AnthropicCompleter
// the Messages API. SummaryModel renders the prompt set, calls the
// completer for the answer, then asks it to fold the new exchange into the
// running conversation summary that serves as session memory.
//
// Both SDK clients are given an *http.Client from NewHTTPClient, which
// owns retries and backoff.
package llm
