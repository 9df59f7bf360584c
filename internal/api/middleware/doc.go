// Package middleware provides the HTTP middleware stack for the chat API.
//
//   - CORS: cross-origin access for browser widgets (gin-contrib/cors)
//   - RateLimiter: per-IP token buckets with idle cleanup (x/time/rate)
//   - Logger: one zap line per request
//   - Recovery: panics become JSON 500 responses
//
// Example Usage:
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig(), nil)
//	go limiter.Run(ctx)
//	router.Use(middleware.Recovery(logger), middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(limiter.Middleware())
package middleware
