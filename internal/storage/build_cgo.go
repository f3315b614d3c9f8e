//go:build cgo_sqlite

package storage

// This file is compiled when building with CGO and the cgo_sqlite tag.
// The FTS5 module must be compiled in as well.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "cgo_sqlite sqlite_fts5" ./...
//
// The cgo driver provides:
//   - The reference C SQLite implementation
//   - Faster bulk writes during large batch saves
//
// Driver used: github.com/mattn/go-sqlite3

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED
func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
