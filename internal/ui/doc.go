// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks a stored run through export:
//  1. [RunListView] : Browse generated runs, newest first
//  2. [TrackListView] : Preview a run's scored tracks
//  3. [ConfirmView] : Confirm playlist creation
//  4. [ExportView] : Follow matching and assembly progress
//  5. [ResultView] : Playlist link, added counts and unmatched tracks
//
// The [Model] receives the run store and an export function instead of concrete services,
// so the command layer decides how sessions and catalogs are built.
// Progress flows through a [tasks.Event] channel that the model drains one message at a time.
package ui
