package services

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/slog"
)

// DrawEngine draws an outcome for the current round and resolves its winner.
// It never moves funds; the result waits on the round for the PayoutExecutor.
type DrawEngine struct {
	store  *RoundStore
	guard  *AccessGuard
	source randomness.Source
}

// NewDrawEngine creates a DrawEngine
func NewDrawEngine(store *RoundStore, guard *AccessGuard, source randomness.Source) *DrawEngine {
	return &DrawEngine{store: store, guard: guard, source: source}
}

// Draw moves the round to DRAWING, pulls the outcome and scores every ticket.
// If randomness cannot be obtained the round goes back to OPEN unchanged.
func (e *DrawEngine) Draw(ctx context.Context, caller models.Identity) (*models.DrawResult, error) {
	if !e.guard.Authorize(caller) {
		slog.Warn("Draw: unauthorized caller", "caller", maskIdentity(caller))
		return nil, ErrUnauthorized
	}

	// 1. Close entries. The ticket set is frozen from here on.
	round, err := e.store.Update(ctx, func(r *models.Round) error {
		if r.State != models.RoundStateOpen {
			return fmt.Errorf("%w: round %d is %s", ErrRoundNotOpen, r.ID, r.State)
		}
		if len(r.Tickets) == 0 {
			return fmt.Errorf("%w: round %d", ErrNoParticipants, r.ID)
		}
		r.State = models.RoundStateDrawing
		r.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Draw: entries closed", "roundId", round.ID, "tickets", len(round.Tickets), "pot", round.Pot)

	// 2. Outcome.
	digest := TicketsDigest(round.ID, round.Tickets)
	if rb, ok := e.source.(randomness.RoundBinder); ok {
		rb.BeginRound(round.ID, digest)
	}
	outcome, err := DrawOutcome(ctx, round.Variant, e.source)
	if err != nil {
		slog.Error("Draw: randomness failed, reopening round", "roundId", round.ID, "error", err)
		e.reopen(ctx, round.ID)
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	// 3. Score against the frozen tickets.
	result := &models.DrawResult{
		RoundID:       round.ID,
		Outcome:       outcome,
		WinningTicket: -1,
		TicketsDigest: hex.EncodeToString(digest),
	}
	if idx, score, ok := ResolveWinner(round.Variant, round.Tickets, outcome); ok {
		result.Winner = round.Tickets[idx].Owner
		result.WinningTicket = idx
		result.Score = score
	}

	if _, err := e.store.Update(ctx, func(r *models.Round) error {
		if r.ID != round.ID || r.State != models.RoundStateDrawing {
			return fmt.Errorf("round %d changed state during draw", round.ID)
		}
		p := *result
		p.Outcome = append([]int(nil), outcome...)
		r.Pending = &p
		return nil
	}); err != nil {
		slog.Error("Draw: failed to record result, reopening round", "roundId", round.ID, "error", err)
		e.reopen(ctx, round.ID)
		return nil, err
	}

	slog.Info("Draw: result resolved", "roundId", round.ID, "outcome", outcome, "winner", maskIdentity(result.Winner), "score", result.Score)
	return result, nil
}

// reopen rolls a DRAWING round without a recorded result back to OPEN.
func (e *DrawEngine) reopen(ctx context.Context, roundID uint64) {
	_, err := e.store.Update(context.WithoutCancel(ctx), func(r *models.Round) error {
		if r.ID != roundID || r.State != models.RoundStateDrawing {
			return errStale
		}
		r.State = models.RoundStateOpen
		r.Pending = nil
		return nil
	})
	if err != nil && !errors.Is(err, errStale) {
		slog.Error("Draw: CRITICAL: failed to reopen round", "roundId", roundID, "error", err)
	}
}

// TicketsDigest is the sha3-256 of a round's ticket set in entry order.
// Only public ticket fields are hashed so anyone can recompute it.
func TicketsDigest(roundID uint64, tickets []models.Ticket) []byte {
	h := sha3.New256()
	var buf [8]byte
	putUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putUint(roundID)
	putUint(uint64(len(tickets)))
	for _, t := range tickets {
		putUint(uint64(t.ID))
		putUint(uint64(len(t.Owner)))
		h.Write([]byte(t.Owner))
		putUint(uint64(len(t.Prediction)))
		for _, n := range t.Prediction {
			putUint(uint64(n))
		}
		putUint(uint64(t.FeePaid))
	}
	return h.Sum(nil)
}

var errStale = errors.New("round moved on")
