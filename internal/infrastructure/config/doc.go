// Package config provides 12-factor configuration management for the
// framenav server.
//
// Configuration is loaded from environment variables with sensible defaults,
// then optionally overlaid by a TOML file named in FRAMENAV_CONFIG. CLI flags
// override both for development.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown timeout)
//   - Navigation: back/forward list capacity and subframe policy
//   - Renderer: loopback renderer fetch timeouts, retries and rate
//   - Session: snapshot directory and compression level
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - NAV_MAX_ENTRIES, NAV_SUBFRAME_HISTORY, NAV_SUBFRAME_TRACKING
//   - RENDERER_TIMEOUT, RENDERER_RETRY_MAX, RENDERER_FETCH_RPS
//   - SESSION_DIR, SESSION_ZSTD_LEVEL
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - FRAMENAV_CONFIG
package config
