package middleware

import (
	"github.com/go-chi/cors"
)

// CORS returns the permissive cross-origin policy applied to the whole
// router. Wrapping at the router level guarantees identical headers on
// success, error, and OPTIONS pre-flight responses.
func CORS() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Client-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-Quota-Bypass"},
		// Wildcard origin: browsers reject Allow-Credentials: true with "*".
		AllowCredentials: false,
		MaxAge:           300,
	}
}
