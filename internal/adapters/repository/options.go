package repository

import (
	"time"

	"github.com/okian/admission/pkg/logger"
)

// Option applies a configuration option to the MemoryResultStore.
type Option func(*MemoryResultStore)

// WithMaxBatches bounds the number of retained batches. Non-positive values are ignored.
func WithMaxBatches(n int) Option {
	return func(s *MemoryResultStore) {
		if n > 0 {
			s.maxBatches = n
		}
	}
}

// WithClock sets the time source used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryResultStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SQLOption applies a configuration option to the SQLProgramStore.
type SQLOption func(*SQLProgramStore)

// WithSQLLogger sets the logger used by the SQL store.
func WithSQLLogger(l logger.Logger) SQLOption {
	return func(s *SQLProgramStore) {
		if l != nil {
			s.logger = l
		}
	}
}
