package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a write-once record is written twice
	ErrAlreadyExists = errors.New("record already exists")
)

// RoundRepository persists the single current round
type RoundRepository interface {
	LoadCurrent(ctx context.Context) (*models.Round, error)
	SaveCurrent(ctx context.Context, round *models.Round) error
}

// AccessPolicyRepository persists the operator policy. It is written exactly once.
type AccessPolicyRepository interface {
	Load(ctx context.Context) (*models.AccessPolicy, error)
	CreateOnce(ctx context.Context, policy *models.AccessPolicy) error
}

// ReceiptRepository defines the interface for settled round receipts
type ReceiptRepository interface {
	// Create stores a receipt. Storing the same round twice is a no-op.
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByRoundID(ctx context.Context, roundID uint64) (*models.Receipt, error)
	FindLatest(ctx context.Context) (*models.Receipt, error)
	FindRecentWinners(ctx context.Context, limit int) ([]*models.Receipt, error)
}

// RolloverRepository defines the interface for carried-over pots
type RolloverRepository interface {
	Create(ctx context.Context, rollover *models.Rollover) error
	FindByDestinationRound(ctx context.Context, roundID uint64) ([]*models.Rollover, error)
}

// LedgerRepository holds participant balances credited by payouts
type LedgerRepository interface {
	// Credit adds amount to the balance of to. A reference that was already
	// applied is ignored and reported as applied == false.
	Credit(ctx context.Context, to models.Identity, amount models.Amount, reference string) (applied bool, err error)
	Balance(ctx context.Context, who models.Identity) (models.Amount, error)
}
