// Package ui implements the interactive library dashboard using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for track editing:
//  1. [LibraryView] : Browse and filter scanned media files
//  2. [DetailView] : Inspect a file's audio and subtitle tracks
//  3. [EditView] : Edit a track title or language inline
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Status updates flow through a channel from the poll.Poller, keeping the scan and processing indicators current without blocking the event loop.
// Field edits are debounced per track field and saved through the API client; pressing enter saves immediately.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, e/l, p, s, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
