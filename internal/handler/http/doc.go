// Package http implements the HTTP transport layer of the memobox server.
// It provides middleware, route handlers, and request/response utilities for
// the REST API. Authentication, logging, tracing and compression are handled
// at this layer before requests reach the service layer.
package http
