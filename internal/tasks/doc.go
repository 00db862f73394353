// Package tasks runs the background engines that keep the library current.
//
// # Scanning
//
// [ScanEngine] discovers media files and records their stream layout:
//
//  1. [ScanEngine.Scan] : Full walk of every active folder
//     - Collects files with supported video extensions
//     - Probes new and changed files with ffprobe, paced by a rate limiter
//     - Classifies filenames into movies and episodes
//     - Removes rows for files that vanished from disk
//
//  2. [ScanEngine.ScanFolder] : Single folder walk under the same guard
//
//  3. [ScanEngine.RescanFile] : Refresh one path, used by the filesystem watcher
//
// Only one scan runs at a time; concurrent calls return
// [shared.ErrScanActive]. Track rows are never replaced while the file has
// an active processing job, so pending edits survive a rescan.
//
// # Processing
//
// [ProcessEngine] drains the remux queue on a fixed interval:
//
//  1. Claims queued jobs oldest-first, up to the max_concurrent_jobs setting
//  2. Remuxes the file with pending track edits applied (stream copy, no re-encode)
//  3. Swaps the output over the original and promotes new_* values to original_*
//
// Jobs left in processing by an interrupted run are requeued at startup.
// Stopping the engine cancels the remux in flight and fails its job.
//
// # Progress Reporting
//
// Scan operations emit [ProgressUpdate] values over a caller-supplied channel.
// Updates use select with default to prevent blocking.
package tasks
