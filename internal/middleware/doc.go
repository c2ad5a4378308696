// Package middleware provides HTTP middleware for mediascand's status
// server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip)
//   - Configurable filtering for static files and health checks
package middleware
