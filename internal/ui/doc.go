// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a three-view workflow for playlist migration:
//  1. [ConfirmView] : Review the configured NetEase playlists before starting
//  2. [MigrateView] : Monitor real-time progress updates with a spinner
//  3. [ResultView] : Display per-playlist tallies and unmatched tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the migration Engine, providing
// non-blocking status reporting during runs.
//
// Keyboard bindings (y/n, enter, esc, q) are displayed via charmbracelet/bubbles/help.
package ui
