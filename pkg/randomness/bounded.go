package randomness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Bounded wraps a Source with a per-attempt timeout and a retry budget.
// A call never blocks longer than roughly (retries+1) * timeout. An attempt
// that times out is abandoned, not stopped: a wrapped source that ignores ctx
// keeps its goroutine until it returns on its own.
type Bounded struct {
	src     Source
	timeout time.Duration
	retries int
}

// NewBounded creates a Bounded source. A zero timeout disables the per-attempt deadline.
func NewBounded(src Source, timeout time.Duration, retries int) *Bounded {
	if retries < 0 {
		retries = 0
	}
	return &Bounded{src: src, timeout: timeout, retries: retries}
}

// BeginRound forwards to the wrapped source when it is round-bound.
func (b *Bounded) BeginRound(roundID uint64, entropy []byte) {
	if rb, ok := b.src.(RoundBinder); ok {
		rb.BeginRound(roundID, entropy)
	}
}

// NextUniform implements Source
func (b *Bounded) NextUniform(ctx context.Context, min, max int) (int, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		v, err := b.attempt(ctx, min, max)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, ErrInvalidRange) {
			return 0, err
		}
		lastErr = err
		slog.Warn("Randomness attempt failed", "attempt", attempt+1, "of", b.retries+1, "error", err)
	}
	return 0, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

type drawn struct {
	v   int
	err error
}

func (b *Bounded) attempt(ctx context.Context, min, max int) (int, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	// Run in a goroutine so a source that ignores ctx still cannot hold the caller.
	ch := make(chan drawn, 1)
	go func() {
		v, err := b.src.NextUniform(ctx, min, max)
		ch <- drawn{v: v, err: err}
	}()
	select {
	case d := <-ch:
		return d.v, d.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
