package randomness

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"

	"golang.org/x/crypto/sha3"
)

const hashChainDomain = "lottery/v1/draw"

// HashChainSource derives outcomes from
// sha3-256(domain || seed || len(entropy) || entropy || round || counter).
//
// The operator publishes Commitment() before entries open and reveals the seed
// afterwards, so anyone can recompute every drawn value for a round from the
// seed and the published tickets. The entropy is the closed ticket digest, so
// knowing the seed alone does not reveal an outcome before entries close.
// A revealed seed stops hiding later rounds: rotate it every reveal period.
type HashChainSource struct {
	mu      sync.Mutex
	seed    []byte
	entropy []byte
	round   uint64
	counter uint64
}

// NewHashChainSource creates a source from a secret seed
func NewHashChainSource(seed []byte) (*HashChainSource, error) {
	if len(seed) < 16 {
		return nil, fmt.Errorf("hash chain seed must be at least 16 bytes, got %d", len(seed))
	}
	return &HashChainSource{seed: append([]byte(nil), seed...)}, nil
}

// NewHashChainSourceHex creates a source from a hex-encoded seed
func NewHashChainSourceHex(seedHex string) (*HashChainSource, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return NewHashChainSource(seed)
}

// Commitment returns the hex sha3-256 of the seed.
func (s *HashChainSource) Commitment() string {
	return Commit(s.seed)
}

// Commit returns the hex sha3-256 commitment for a seed
func Commit(seed []byte) string {
	sum := sha3.Sum256(seed)
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment reports whether seed matches a previously published commitment.
func VerifyCommitment(seed []byte, commitment string) bool {
	return subtle.ConstantTimeCompare([]byte(Commit(seed)), []byte(commitment)) == 1
}

// BeginRound implements RoundBinder. The counter restarts so each round has its own stream.
func (s *HashChainSource) BeginRound(roundID uint64, entropy []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round = roundID
	s.entropy = append([]byte(nil), entropy...)
	s.counter = 0
}

// NextUniform implements Source
func (s *HashChainSource) NextUniform(ctx context.Context, min, max int) (int, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	span := uint64(int64(max) - int64(min) + 1)
	// Reject the tail so every residue is equally likely.
	limit := math.MaxUint64 - (math.MaxUint64%span+1)%span

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		v := s.next()
		if v <= limit {
			return min + int(v%span), nil
		}
	}
}

func (s *HashChainSource) next() uint64 {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(s.entropy)))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], s.round)
	binary.BigEndian.PutUint64(buf[8:], s.counter)
	s.counter++

	h := sha3.New256()
	h.Write([]byte(hashChainDomain))
	h.Write(s.seed)
	h.Write(size[:])
	h.Write(s.entropy)
	h.Write(buf[:])
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
