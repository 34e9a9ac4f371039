package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// RoundStore owns the current round. Writers are serialized by mu and stage
// their change on a clone; the clone is persisted first and only then
// published, so a failed step leaves the previous round in place. Readers
// load the published pointer and never wait on a writer.
type RoundStore struct {
	mu      sync.Mutex
	current atomic.Pointer[models.Round]
	repo    repositories.RoundRepository
	now     func() time.Time
}

// OpenRoundStore loads the persisted round, or creates round 1 when none exists.
// A stored round with no tickets adopts the configured variant and fee; a
// non-empty round under a different configuration is refused.
func OpenRoundStore(ctx context.Context, repo repositories.RoundRepository, variant models.Variant, fee models.Amount, now func() time.Time) (*RoundStore, error) {
	if now == nil {
		now = time.Now
	}
	s := &RoundStore{repo: repo, now: now}

	round, err := repo.LoadCurrent(ctx)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		round = models.NewRound(1, variant, fee, 0, now())
		if err := repo.SaveCurrent(ctx, round); err != nil {
			return nil, fmt.Errorf("failed to create first round: %w", err)
		}
		slog.Info("Created first round", "roundId", round.ID, "variant", variant, "entryFee", fee)
	case err != nil:
		return nil, fmt.Errorf("failed to load round: %w", err)
	case round.Variant != variant || round.EntryFee != fee:
		if round.State != models.RoundStateOpen || len(round.Tickets) > 0 {
			return nil, fmt.Errorf("round %d was opened as %s at fee %d and still holds tickets; refusing to switch to %s at fee %d",
				round.ID, round.Variant, round.EntryFee, variant, fee)
		}
		round.Variant, round.EntryFee = variant, fee
		if err := repo.SaveCurrent(ctx, round); err != nil {
			return nil, fmt.Errorf("failed to reconfigure round: %w", err)
		}
		slog.Warn("Empty round reconfigured", "roundId", round.ID, "variant", variant, "entryFee", fee)
	}

	s.current.Store(round)
	return s, nil
}

// Snapshot returns the published round. Callers must treat it as read-only.
func (s *RoundStore) Snapshot() *models.Round {
	return s.current.Load()
}

// Update applies fn to a copy of the current round, persists it and publishes it.
// If fn or the write fails, nothing changes.
func (s *RoundStore) Update(ctx context.Context, fn func(r *models.Round) error) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.repo.SaveCurrent(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist round %d: %w", next.ID, err)
	}
	s.current.Store(next)
	return next, nil
}
