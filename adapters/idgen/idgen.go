// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/erpkit/ports"
	"github.com/google/uuid"
)

// UUID generates time-ordered UUIDs (v7), so template and preset ids sort
// by creation.
type UUID struct{}

// New generates a new UUID v7, falling back to v4 if the clock source fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

var _ ports.IDGenerator = UUID{}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

var _ ports.IDGenerator = (*Sequential)(nil)
