// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository owns the raw SQL for one entity family. Rows use integer
// autoincrement primary keys — the /media/<id> URL convention and the
// processing status payload both expose these ids directly.
//
// Key Implementations:
//   - [FolderRepository] : Watched folder persistence with path lookups
//   - [MediaRepository] : Media file persistence, search, and scan counters
//   - [TrackRepository] : Audio/subtitle track rows, edit application, and
//     post-remux promotion of pending edits
//   - [JobRepository] : Processing job queue with claim/progress/finish
//     transitions and the active-jobs status view
//   - [SettingsRepository] : Key/value application settings with typed getters
//
// Deletes are hard deletes: removing a folder removes its files, and removing
// a file removes its tracks and jobs (enforced by ON DELETE CASCADE, plus
// explicit statements where a connection might not enforce foreign keys).
package repositories
