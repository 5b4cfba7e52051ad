package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrBatchExists       = errors.New("batch already exists")
	ErrInvalidLimit      = errors.New("invalid result limit")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
