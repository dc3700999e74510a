// =============================================================================
// Report Consolidator - Storage Port
// =============================================================================
//
// The report store persists one JSON blob under a well-known key. This
// package hides where that blob lives.
//
// BACKENDS:
//   memory : process-local map, used by tests and `--store memory`
//   file   : one <key>.json file per key inside a directory
//   sqlite : a single kv table in an SQLite database file
//
// Every Set replaces the whole value, so readers always see either the old
// or the new blob in full.
//
// =============================================================================

package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a synchronous named-blob store.
type Storage interface {
	// Get returns the value for key or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Close releases the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the storage backend named by backend. path is the directory
// for the file backend and the database file for sqlite; memory ignores it.
func Open(backend, path string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendFile:
		f, err := NewFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case BackendSQLite:
		db, err := NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
