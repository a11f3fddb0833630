// Package server provides the HTTP transport: a Gin engine mounted on a
// ServeMux behind h2c, with lifecycle management through component.Component.
//
// # Middleware
//
// Gin-level (server/middleware): Recovery, RequestID.
// Server-level (wraps every handler on the mux): BodySizeLimit, RequestLogger.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /ready: readiness probe (model loaded)
//   - /info: build information
package server
