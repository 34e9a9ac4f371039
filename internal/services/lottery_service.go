package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure LotteryServiceImpl implements LotteryService
var _ LotteryService = (*LotteryServiceImpl)(nil)

const (
	DefaultRecentWinners = 5
	maxRecentWinners     = 100
)

// Settings fixes the game played by a LotteryServiceImpl
type Settings struct {
	Variant  models.Variant
	EntryFee models.Amount
	Operator models.Identity
}

// Dependencies are the collaborators of a LotteryServiceImpl
type Dependencies struct {
	Rounds    repositories.RoundRepository
	Policies  repositories.AccessPolicyRepository
	Receipts  repositories.ReceiptRepository
	Rollovers repositories.RolloverRepository
	Ledger    repositories.LedgerRepository
	Source    randomness.Source
	Transfer  TransferChannel // defaults to a LedgerTransfer over Ledger
	Now       func() time.Time
}

// LotteryServiceImpl wires the registry, draw engine and payout executor around one round store
type LotteryServiceImpl struct {
	Registry *TicketRegistry
	Engine   *DrawEngine
	Payout   *PayoutExecutor
	Guard    *AccessGuard

	store    *RoundStore
	receipts repositories.ReceiptRepository
	ledger   repositories.LedgerRepository
}

// NewLotteryService loads persisted state, repairs an interrupted draw or payout and returns a ready service.
func NewLotteryService(ctx context.Context, settings Settings, deps Dependencies) (*LotteryServiceImpl, error) {
	if settings.EntryFee <= 0 {
		return nil, fmt.Errorf("entry fee must be positive, got %d", settings.EntryFee)
	}
	if _, err := ParseVariant(string(settings.Variant)); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		return nil, errors.New("randomness source is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Transfer == nil {
		if deps.Ledger == nil {
			return nil, errors.New("either a transfer channel or a ledger is required")
		}
		deps.Transfer = NewLedgerTransfer(deps.Ledger)
	}

	policy, err := EnsureAccessPolicy(ctx, deps.Policies, settings.Operator, deps.Now())
	if err != nil {
		return nil, err
	}
	store, err := OpenRoundStore(ctx, deps.Rounds, settings.Variant, settings.EntryFee, deps.Now)
	if err != nil {
		return nil, err
	}
	guard := NewAccessGuard(*policy)

	s := &LotteryServiceImpl{
		Registry: NewTicketRegistry(store),
		Engine:   NewDrawEngine(store, guard, deps.Source),
		Payout:   NewPayoutExecutor(store, deps.Transfer, deps.Receipts, deps.Rollovers),
		Guard:    guard,
		store:    store,
		receipts: deps.Receipts,
		ledger:   deps.Ledger,
	}
	if err := s.recover(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// recover brings a round left mid-draw or mid-payout back to a consistent state.
func (s *LotteryServiceImpl) recover(ctx context.Context) error {
	round := s.store.Snapshot()
	switch {
	case round.State == models.RoundStateDrawing && round.Pending == nil:
		slog.Warn("Recover: draw interrupted before a result was recorded, reopening", "roundId", round.ID)
		s.Engine.reopen(ctx, round.ID)
	case round.State == models.RoundStateSettled:
		if _, err := s.Payout.Resume(ctx); err != nil && !errors.Is(err, ErrTransferFailed) {
			return fmt.Errorf("failed to resume payout of round %d: %w", round.ID, err)
		}
	}
	return nil
}

// Enter buys a ticket in the current round
func (s *LotteryServiceImpl) Enter(ctx context.Context, owner models.Identity, prediction []int, feePaid models.Amount) (*models.EnterResponse, error) {
	id, err := s.Registry.Enter(ctx, owner, prediction, feePaid)
	if err != nil {
		return nil, err
	}
	snap := s.store.Snapshot()
	return &models.EnterResponse{TicketID: id, RoundID: snap.ID, Pot: snap.Pot}, nil
}

// ListTickets returns the current round's tickets
func (s *LotteryServiceImpl) ListTickets(_ context.Context) []models.Ticket {
	return s.Registry.ListTickets()
}

// TicketsOf returns owner's tickets
func (s *LotteryServiceImpl) TicketsOf(_ context.Context, owner models.Identity) []models.Ticket {
	return s.Registry.TicketsOf(owner)
}

// ExecuteDraw runs Draw and hands the result straight to the payout executor.
func (s *LotteryServiceImpl) ExecuteDraw(ctx context.Context, caller models.Identity) (*models.Receipt, error) {
	result, err := s.Engine.Draw(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.Payout.Settle(ctx, result)
}

// RetrySettlement pays the result already recorded on a DRAWING round, or
// finishes a SETTLED round whose bookkeeping failed after the transfer.
func (s *LotteryServiceImpl) RetrySettlement(ctx context.Context, caller models.Identity) (*models.Receipt, error) {
	if !s.Guard.Authorize(caller) {
		slog.Warn("RetrySettlement: unauthorized caller", "caller", maskIdentity(caller))
		return nil, ErrUnauthorized
	}
	round := s.store.Snapshot()
	switch {
	case round.State == models.RoundStateSettled:
		return s.Payout.Resume(ctx)
	case round.Pending == nil:
		return nil, ErrNoPendingDraw
	}
	return s.Payout.Settle(ctx, round.Clone().Pending)
}

// Status summarizes the current round
func (s *LotteryServiceImpl) Status(ctx context.Context) (*models.LotteryStatus, error) {
	round := s.store.Snapshot()
	status := &models.LotteryStatus{
		RoundID:    round.ID,
		State:      round.State,
		Variant:    round.Variant,
		EntryFee:   round.EntryFee,
		Players:    len(round.Tickets),
		Pot:        round.Pot,
		Carryover:  round.Carryover,
		CurrentPot: round.Payout() + round.Reserved,
		Operator:   s.Guard.Operator(),
	}
	last, err := s.LastReceipt(ctx)
	switch {
	case err == nil:
		status.LastWinner = last.Winner
		status.LastOutcome = last.Outcome
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}
	return status, nil
}

// LastReceipt returns the most recently settled round
func (s *LotteryServiceImpl) LastReceipt(ctx context.Context) (*models.Receipt, error) {
	receipt, err := s.receipts.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		slog.Error("Failed to read latest receipt", "error", err)
		return nil, fmt.Errorf("failed to retrieve latest receipt: %w", err)
	}
	return receipt, nil
}

// RecentWinners lists settled rounds that paid a winner
func (s *LotteryServiceImpl) RecentWinners(ctx context.Context, limit int) ([]*models.Receipt, error) {
	if limit <= 0 {
		limit = DefaultRecentWinners
	}
	if limit > maxRecentWinners {
		limit = maxRecentWinners
	}
	winners, err := s.receipts.FindRecentWinners(ctx, limit)
	if err != nil {
		slog.Error("Failed to read recent winners", "error", err)
		return nil, fmt.Errorf("failed to retrieve winners: %w", err)
	}
	return winners, nil
}

// Balance returns an identity's credited winnings
func (s *LotteryServiceImpl) Balance(ctx context.Context, who models.Identity) (models.Amount, error) {
	if s.ledger == nil {
		return 0, errors.New("no ledger configured")
	}
	return s.ledger.Balance(ctx, who)
}

// Round returns a copy of the current round
func (s *LotteryServiceImpl) Round() *models.Round {
	return s.store.Snapshot().Clone()
}
