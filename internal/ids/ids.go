// Package ids generates identifiers for entities created outside the
// container, such as todos added from a scenario file without an explicit id.
package ids

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator produces unique entity identifiers.
// Implemented by UUIDv7 (production) and Sequence (tests, golden data).
type Generator interface {
	Next() string
}

// UUIDv7 generates time-sortable UUIDv7 identifiers.
//
// Stateless and safe for concurrent use. Panics if the system random source
// fails, which uuid.NewV7 only reports on a broken platform.
type UUIDv7 struct{}

// Next returns a new hyphenated UUIDv7 string.
func (UUIDv7) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Sequence returns prefix-1, prefix-2, ... in order.
//
// Safe for concurrent use via an internal mutex.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequence creates a Sequence with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.prefix + "-" + strconv.Itoa(s.n)
}
