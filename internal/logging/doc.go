// Package logging provides file-based structured logging with rotation for lexsearch.
//
// Logs are JSON lines written through slog to ~/.lexsearch/logs/lexsearch.log.
// Server mode never writes to stdout or stderr, since stdout carries JSON-RPC.
package logging
