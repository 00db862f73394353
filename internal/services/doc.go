// Package services wraps the external processes and HTTP surfaces medley depends on.
//
// # API Client
//
// [APIService] makes raw HTTP requests against a medley server and reports each
// response as an [APIResponse] with parsed JSON when the body allows it.
//
// [LibraryService] layers the typed API on top: scan control, media queries,
// track updates, queueing, folders, and settings. Every failed request becomes
// an [*APIError] carrying the HTTP status and the server's error message, so
// callers can branch on status without re-parsing bodies.
//
// Mutating calls route their failures through the configured [Notifier] before
// returning. Read-only polls stay quiet so a flaky connection does not flood
// the interface with duplicate notices.
//
// # Media Tools
//
// [FFProbe] inspects containers and streams, producing a [ProbeResult] whose
// per-type track indexes line up with ffmpeg's -map 0:a:<n> selectors.
//
// [FFMpeg] rewrites track metadata in place via stream copy ([Remuxer]), and
// extracts short audio and subtitle samples for previews. Remux progress is
// parsed out of ffmpeg's carriage-return status lines and reported as a
// percentage.
//
// Both wrappers expose Check so startup can fail fast when a binary is
// missing from PATH.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrToolMissing] : ffmpeg or ffprobe not found on PATH
//   - [shared.ErrAPIRequest] : HTTP request could not be sent
//   - [shared.ErrServiceUnavailable] : server reachable but not healthy
package services
