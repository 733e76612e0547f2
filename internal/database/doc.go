// Package database provides SQLite-based storage for linkcheck run history.
//
// Every run is recorded with its summary, its findings and the digests of
// the documents it read, so that later runs can be compared against it:
//   - runs holds one row per run with the status counts
//   - findings holds every finding of a run
//   - documents holds the path, content digest and link count per document
//
// The database is a single file opened through modernc.org/sqlite, which
// needs no cgo. WAL mode is enabled by default.
package database
