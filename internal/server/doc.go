// Package server provides HTTP routing, middleware, and the medley JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified route patterns.
//
// # API Handler
//
// [APIHandler] implements the [Handler] interface and serves every endpoint the
// dashboard and CLI consume: scan progress and processing status polling, scan
// control, media and track queries, track metadata updates, job queueing,
// folder and settings management, and audio/subtitle previews.
//
// Every error response carries a {"error": message} JSON body with a matching
// status code; the API client in the services package relies on that shape.
//
// # Middleware
//
// [RequestLogger] logs each request with a correlation id, status, and duration.
//
// [Recover] is the server-side backstop: handler panics become a 500 with the
// generic error body plus a diagnostic log entry, and never crash the process.
package server
