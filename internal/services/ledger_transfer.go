package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// LedgerTransfer is a TransferChannel that credits winners in the balance ledger.
type LedgerTransfer struct {
	ledger  repositories.LedgerRepository
	blocked map[models.Identity]bool
}

// NewLedgerTransfer creates a LedgerTransfer. Blocked recipients cannot accept funds.
func NewLedgerTransfer(ledger repositories.LedgerRepository, blocked ...models.Identity) *LedgerTransfer {
	t := &LedgerTransfer{ledger: ledger, blocked: map[models.Identity]bool{}}
	for _, b := range blocked {
		t.blocked[b] = true
	}
	return t
}

// Transfer implements TransferChannel
func (t *LedgerTransfer) Transfer(ctx context.Context, to models.Identity, amount models.Amount, reference string) error {
	if to == "" {
		return errors.New("recipient is empty")
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	if t.blocked[to] {
		return fmt.Errorf("recipient %s cannot accept funds", maskIdentity(to))
	}
	applied, err := t.ledger.Credit(ctx, to, amount, reference)
	if err != nil {
		return err
	}
	if !applied {
		slog.Warn("Ledger: transfer already applied", "reference", reference, "to", maskIdentity(to))
	}
	return nil
}
