package db

import "errors"

var (
	// ErrSchemaNotFound means the destination table does not exist (or
	// exposes no columns through information_schema).
	ErrSchemaNotFound = errors.New("table schema not found")

	// ErrConnection covers any failure to reach or query the database,
	// including driver-level timeouts.
	ErrConnection = errors.New("database connection error")

	// ErrConstraint is a duplicate-key or other constraint violation on
	// insert. The insert loop absorbs duplicate keys per row; anything
	// else surfaces wrapped in this error.
	ErrConstraint = errors.New("constraint violation")
)
