package service

import (
	"errors"

	"github.com/okian/admission/internal/adapters/repository"
)

// Sentinel kinds returned by the Service.
var (
	// ErrNotFound is returned for unknown programs and batches.
	ErrNotFound = repository.ErrNotFound
	// ErrBackpressure is returned when the job queue cannot take a whole batch.
	ErrBackpressure = errors.New("job queue full, retry later")
	// ErrNotStarted is returned by batch operations before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
)
