// Package middleware provides HTTP middleware for the status endpoint.
//
// It includes:
//   - Access logging through the logging package, with control characters
//     stripped from request fields
//   - Prometheus request metrics labeled by matched route template
package middleware
