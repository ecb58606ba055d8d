// Package vault turns file activity in a notes directory into metric updates.
//
// Recorder is the host event consumer: it maps create, modify, delete and
// rename events onto the built-in metric set. Watcher produces those events
// from fsnotify for a directory tree.
package vault
