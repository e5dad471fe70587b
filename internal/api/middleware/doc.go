// Package middleware provides the HTTP middleware of the API server.
//
// Middleware stack includes:
//   - RequestID: Request tagging, echoed in X-Request-ID
//   - Logger: One zap line per request, level by status
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting with idle sweeping
//
// Example Usage:
//
//	router.Use(middleware.RequestID(), middleware.Logger(log))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
//	router.Use(middleware.RateLimit(cfg.RateLimit))
package middleware
