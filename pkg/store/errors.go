package store

import "errors"

// ErrNotFound is returned by repositories when a record does not exist or,
// for pending-transition lookups, is already resolved. Callers translate it
// into their own error taxonomy.
var ErrNotFound = errors.New("record not found")
