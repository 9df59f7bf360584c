// Package server assembles the chat service: session store and reaper,
// collaborators, orchestrator, middleware chain and routes, behind one
// gzip-compressing http.Server with graceful shutdown.
package server
