package randomness

import (
	"context"
	"fmt"
	"sync"
)

// Sequence replays a fixed list of values. It is meant for tests and
// replaying audited draws. Values outside the requested range are an error.
type Sequence struct {
	mu     sync.Mutex
	values []int
	pos    int
	calls  int
}

// NewSequence creates a Sequence source
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: append([]int(nil), values...)}
}

// NextUniform implements Source
func (s *Sequence) NextUniform(_ context.Context, min, max int) (int, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.pos >= len(s.values) {
		return 0, fmt.Errorf("sequence exhausted after %d values", len(s.values))
	}
	v := s.values[s.pos]
	s.pos++
	if v < min || v > max {
		return 0, fmt.Errorf("sequence value %d outside [%d,%d]", v, min, max)
	}
	return v, nil
}

// Reset rewinds the sequence to the first value
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
}

// Calls returns how many values were requested
func (s *Sequence) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
