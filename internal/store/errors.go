package store

import "errors"

// ErrDBNil is returned when a store is built without a database handle.
var ErrDBNil = errors.New("database is nil")
