package services

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// TransferChannel moves funds to a recipient. Implementations must treat
// reference as an idempotency key: a repeated reference never pays twice.
type TransferChannel interface {
	Transfer(ctx context.Context, to models.Identity, amount models.Amount, reference string) error
}

// PayoutExecutor pays a resolved draw exactly once and opens the next round.
type PayoutExecutor struct {
	store     *RoundStore
	channel   TransferChannel
	receipts  repositories.ReceiptRepository
	rollovers repositories.RolloverRepository

	// inFlight is held from reservation until the next round opens.
	inFlight atomic.Bool
}

// NewPayoutExecutor creates a PayoutExecutor
func NewPayoutExecutor(store *RoundStore, channel TransferChannel, receipts repositories.ReceiptRepository, rollovers repositories.RolloverRepository) *PayoutExecutor {
	return &PayoutExecutor{store: store, channel: channel, receipts: receipts, rollovers: rollovers}
}

// transferReference is the idempotency key for a round's payout
func transferReference(roundID uint64) string {
	return "round-" + strconv.FormatUint(roundID, 10)
}

// Settle pays the winner of result. The pot is reserved and the round marked
// SETTLED before the transfer runs, so a call made while the transfer is in
// flight is rejected. A failed transfer puts the round back to DRAWING with the
// same result so the operator can retry.
func (p *PayoutExecutor) Settle(ctx context.Context, result *models.DrawResult) (*models.Receipt, error) {
	if result == nil {
		return nil, ErrNoPendingDraw
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: round %d", ErrSettlementInProgress, result.RoundID)
	}
	defer p.inFlight.Store(false)

	if !result.HasWinner() {
		return p.rollOver(ctx, result)
	}

	// Effects first.
	round, err := p.store.Update(ctx, func(r *models.Round) error {
		if err := checkPending(r, result); err != nil {
			return err
		}
		score := r.Pending.Score
		r.Reserved = r.Payout()
		r.Pot, r.Carryover = 0, 0
		r.State = models.RoundStateSettled
		r.DrawnOutcome = append([]int(nil), r.Pending.Outcome...)
		r.Winner = r.Pending.Winner
		r.MatchScore = &score
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Settle: payout reserved", "roundId", round.ID, "winner", maskIdentity(round.Winner), "amount", round.Reserved)

	// Interaction.
	if err := p.channel.Transfer(ctx, round.Winner, round.Reserved, transferReference(round.ID)); err != nil {
		slog.Error("Settle: transfer failed, returning round to DRAWING", "roundId", round.ID, "error", err)
		p.restoreDrawing(ctx, round.ID)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	return p.finish(ctx, round)
}

// Resume completes a round that was left SETTLED, by a crash or by a failed
// write after the transfer. The transfer is replayed under the same reference,
// which the channel never pays twice.
func (p *PayoutExecutor) Resume(ctx context.Context) (*models.Receipt, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: round %d", ErrSettlementInProgress, p.store.Snapshot().ID)
	}
	defer p.inFlight.Store(false)

	round := p.store.Snapshot()
	if round.State != models.RoundStateSettled {
		return nil, ErrNoPendingDraw
	}
	slog.Warn("Settle: resuming interrupted payout", "roundId", round.ID, "winner", maskIdentity(round.Winner), "amount", round.Reserved)
	if err := p.channel.Transfer(ctx, round.Winner, round.Reserved, transferReference(round.ID)); err != nil {
		p.restoreDrawing(ctx, round.ID)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return p.finish(ctx, round.Clone())
}

// finish records the receipt and opens the next round.
func (p *PayoutExecutor) finish(ctx context.Context, settled *models.Round) (*models.Receipt, error) {
	ctx = context.WithoutCancel(ctx)
	receipt := &models.Receipt{
		RoundID:    settled.ID,
		Variant:    settled.Variant,
		Winner:     settled.Winner,
		AmountPaid: settled.Reserved,
		Outcome:    append([]int(nil), settled.DrawnOutcome...),
		Tickets:    len(settled.Tickets),
		SettledAt:  p.store.now(),
	}
	if settled.MatchScore != nil {
		receipt.Score = *settled.MatchScore
	}
	if settled.Pending != nil {
		receipt.TicketsDigest = settled.Pending.TicketsDigest
	}
	if err := p.receipts.Create(ctx, receipt); err != nil {
		// Funds have moved; the round stays SETTLED until Resume records it.
		slog.Error("Settle: CRITICAL: failed to store receipt", "roundId", settled.ID, "error", err)
		return nil, fmt.Errorf("failed to store receipt for round %d: %w", settled.ID, err)
	}

	next, err := p.store.Update(ctx, func(r *models.Round) error {
		if r.ID != settled.ID || r.State != models.RoundStateSettled {
			return errStale
		}
		*r = *models.NewRound(r.ID+1, r.Variant, r.EntryFee, 0, p.store.now())
		return nil
	})
	if err != nil {
		slog.Error("Settle: CRITICAL: failed to open next round", "roundId", settled.ID, "error", err)
		return nil, err
	}

	slog.Info("Settle: round paid", "roundId", receipt.RoundID, "winner", maskIdentity(receipt.Winner), "amount", receipt.AmountPaid, "nextRoundId", next.ID)
	return receipt, nil
}

// rollOver settles a draw nobody won: the whole payout carries into the next round.
func (p *PayoutExecutor) rollOver(ctx context.Context, result *models.DrawResult) (*models.Receipt, error) {
	round := p.store.Snapshot()
	if err := checkPending(round, result); err != nil {
		return nil, err
	}
	if round.Pending.HasWinner() {
		return nil, fmt.Errorf("%w: round %d has a winner", ErrNoPendingDraw, round.ID)
	}
	ctx = context.WithoutCancel(ctx)
	now := p.store.now()
	carried := round.Payout()

	rollover := &models.Rollover{
		SourceRoundID:      round.ID,
		DestinationRoundID: round.ID + 1,
		Amount:             carried,
		Outcome:            append([]int(nil), round.Pending.Outcome...),
		Reason:             models.RolloverReasonNoMatch,
		CreatedAt:          now,
	}
	if err := p.rollovers.Create(ctx, rollover); err != nil {
		return nil, fmt.Errorf("failed to record rollover for round %d: %w", round.ID, err)
	}
	receipt := &models.Receipt{
		RoundID:       round.ID,
		Variant:       round.Variant,
		RolledOver:    carried,
		Outcome:       append([]int(nil), round.Pending.Outcome...),
		Score:         round.Pending.Score,
		Tickets:       len(round.Tickets),
		SettledAt:     now,
		TicketsDigest: round.Pending.TicketsDigest,
	}
	if err := p.receipts.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to store receipt for round %d: %w", round.ID, err)
	}

	next, err := p.store.Update(ctx, func(r *models.Round) error {
		if err := checkPending(r, result); err != nil {
			return err
		}
		*r = *models.NewRound(r.ID+1, r.Variant, r.EntryFee, carried, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Settle: no matching ticket, pot rolled over", "roundId", receipt.RoundID, "amount", carried, "nextRoundId", next.ID)
	return receipt, nil
}

// restoreDrawing undoes the reservation after a failed transfer.
func (p *PayoutExecutor) restoreDrawing(ctx context.Context, roundID uint64) {
	_, err := p.store.Update(context.WithoutCancel(ctx), func(r *models.Round) error {
		if r.ID != roundID || r.State != models.RoundStateSettled {
			return errStale
		}
		r.Pot = models.Amount(len(r.Tickets)) * r.EntryFee
		r.Carryover = r.Reserved - r.Pot
		r.Reserved = 0
		r.State = models.RoundStateDrawing
		r.DrawnOutcome, r.Winner, r.MatchScore = nil, "", nil
		return nil
	})
	if err != nil {
		slog.Error("Settle: CRITICAL: failed to restore round after transfer failure", "roundId", roundID, "error", err)
	}
}

// checkPending verifies r is DRAWING and holds exactly result.
func checkPending(r *models.Round, result *models.DrawResult) error {
	switch r.State {
	case models.RoundStateSettled:
		return fmt.Errorf("%w: round %d", ErrSettlementInProgress, r.ID)
	case models.RoundStateOpen:
		return fmt.Errorf("%w: round %d is open", ErrNoPendingDraw, r.ID)
	}
	if r.Pending == nil || r.Pending.RoundID != result.RoundID || r.ID != result.RoundID ||
		r.Pending.Winner != result.Winner || !equalInts(r.Pending.Outcome, result.Outcome) {
		return fmt.Errorf("%w: result does not match round %d", ErrNoPendingDraw, r.ID)
	}
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
