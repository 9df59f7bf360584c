// Command server runs the Echo chat backend.
//
// Configuration comes from the environment (see internal/infrastructure/config)
// and may be overridden by flags:
//
//	server --port 8000 --session-ttl 10m --log-level debug
//	server --dev --retrieval-url http://localhost:8001 --prompt-file prompts.yaml
//
// SIGINT and SIGTERM trigger a graceful shutdown.
package main
