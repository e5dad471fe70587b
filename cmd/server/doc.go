// Package main is the entry point for the framenav server.
//
// The server hosts tabs whose navigation controllers are driven over a
// REST API, with a loopback renderer that fetches real documents and
// reports commits back to each tab.
//
// The server provides:
//   - REST API for tabs, frames and session history
//   - WebSocket streaming of tab events
//   - Session persistence
//   - Prometheus metrics and rate limiting
//
// Configuration:
//   - Environment variables (12-factor)
//   - Optional TOML file named by FRAMENAV_CONFIG
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -host 0.0.0.0 -port 8000
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
