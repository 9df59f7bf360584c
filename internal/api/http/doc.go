// Package http exposes the chat service over REST.
//
// Routes:
//
//	GET    /             service banner
//	GET    /health       liveness and live session count
//	POST   /chat         run one turn
//	DELETE /session/:id  drop a session
//
// A turn whose collaborators fail still answers 200 with the fallback
// message; only malformed input is rejected with 400.
package http
