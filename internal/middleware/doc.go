// Package middleware provides HTTP middleware for the thumbnailer API.
//
// It includes:
//   - Request IDs propagated through the X-Request-ID header
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression for JSON responses
package middleware
