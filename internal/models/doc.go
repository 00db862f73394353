// Package models defines domain entities and persistence interfaces for the medley media library service.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: Database-backed rows describing the library
//   - [MediaFolder] : A watched directory containing media files
//   - [MediaFile] : A scanned video file with classification and status
//   - [AudioTrack] / [SubtitleTrack] : Embedded streams with original and edited metadata
//   - [ProcessingJob] : A queued/running/finished remux operation
//   - [AppSetting] : A key/value application setting
//
// 2. Wire Payloads: JSON shapes served by the API and consumed by the dashboard
//   - [ScanProgress] : Library scan counters and derived percentage
//   - [JobStatus] : One active job as reported by the processing status endpoint
//   - [TrackUpdate] : The update_track request body
//
// Persistent entities implement the [Model] interface (integer key plus validation).
// The [Repository] interface defines standard CRUD operations for database access;
// concrete implementations live in the repositories package.
package models
