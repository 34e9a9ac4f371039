// Package randomness supplies drawn outcomes for the lottery core.
//
// Every implementation satisfies Source: NextUniform returns an integer
// uniformly distributed over the inclusive range [min, max], independent of
// earlier calls within the same draw.
package randomness

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnavailable is returned when no value could be produced within the retry and timeout budget.
	ErrUnavailable = errors.New("randomness unavailable")
	// ErrInvalidRange is returned when min > max.
	ErrInvalidRange = errors.New("invalid range")
)

// Source produces uniform integers over an inclusive range.
type Source interface {
	NextUniform(ctx context.Context, min, max int) (int, error)
}

// RoundBinder is implemented by sources whose stream is derived per round.
// The draw engine calls BeginRound once before requesting values for a round.
// entropy is a digest of the round's closed ticket set, so it only exists once
// entries are frozen.
type RoundBinder interface {
	BeginRound(roundID uint64, entropy []byte)
}

func checkRange(min, max int) error {
	if min > max {
		return fmt.Errorf("%w: [%d,%d]", ErrInvalidRange, min, max)
	}
	return nil
}

// CryptoSource draws from the operating system CSPRNG.
type CryptoSource struct{}

// NewCryptoSource creates a CryptoSource
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{}
}

// NextUniform implements Source
func (s *CryptoSource) NextUniform(ctx context.Context, min, max int) (int, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	span := big.NewInt(int64(max) - int64(min) + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("read crypto/rand: %w", err)
	}
	return min + int(n.Int64()), nil
}
