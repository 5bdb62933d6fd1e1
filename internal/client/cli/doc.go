// Package cli provides the interactive Kuliner Nusantara command-line client.
//
// It wires configuration, local storage, the story API client, and an
// interactive REPL that supports online/offline operation. Stories added
// while the server is unreachable are queued locally and pushed once a
// background connectivity watcher sees the connection return.
//
// Key features:
//   - Register / Login / Logout against the story API
//   - Add stories with a photo and optional location, online or offline
//   - List / Show stories, served from the local cache when offline
//   - Sync queued stories on demand or automatically on reconnect
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, Reconciler.Watch, and runREPL for details.
package cli
