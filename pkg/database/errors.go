package database

import "errors"

var (
	// ErrNotReady indicates the database connection has not been established.
	ErrNotReady = errors.New("database not ready")
	// ErrSchemaMissing indicates a required table does not exist; run the
	// migrate command.
	ErrSchemaMissing = errors.New("database schema missing")
)
