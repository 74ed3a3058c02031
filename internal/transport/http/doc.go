// Package http exposes the dashboard and health services over HTTP.
//
// Handlers stay thin: they parse and validate query parameters, call a
// service and render either the success envelope
//
//	{"status": "success", "data": ..., "count": n}
//
// or an RFC 7807 problem produced by the shared ErrorHandler. Domain errors
// are mapped to statuses once, in RegisterErrorMappings.
//
// Export and chart responses are buffered before the first byte is written,
// so a failure halfway through still reaches the client as a problem
// document instead of a truncated file.
package http
