package sqliteengine

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// isConflictError reports a violated uniqueness constraint, or a write on a stale WAL snapshot.
// Both mean another writer got to the stream first.
func isConflictError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_BUSY_SNAPSHOT:
		return true
	default:
		return false
	}
}
