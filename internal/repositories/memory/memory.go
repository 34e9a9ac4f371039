// Package memory provides in-process repositories for tests and single-node development.
// Nothing here survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
)

// RoundRepository implements repositories.RoundRepository
type RoundRepository struct {
	mu    sync.Mutex
	round *models.Round
	saves int
	// FailSave, when set, is returned by the next SaveCurrent call.
	FailSave error
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository() *RoundRepository {
	return &RoundRepository{}
}

// LoadCurrent returns a copy of the stored round
func (r *RoundRepository) LoadCurrent(_ context.Context) (*models.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round == nil {
		return nil, repositories.ErrNotFound
	}
	return r.round.Clone(), nil
}

// SaveCurrent replaces the stored round
func (r *RoundRepository) SaveCurrent(_ context.Context, round *models.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailSave; err != nil {
		r.FailSave = nil
		return err
	}
	r.round = round.Clone()
	r.saves++
	return nil
}

// Saves returns how many successful writes happened
func (r *RoundRepository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// AccessPolicyRepository implements repositories.AccessPolicyRepository
type AccessPolicyRepository struct {
	mu     sync.Mutex
	policy *models.AccessPolicy
}

// NewAccessPolicyRepository creates a new AccessPolicyRepository
func NewAccessPolicyRepository() *AccessPolicyRepository {
	return &AccessPolicyRepository{}
}

// Load returns the stored policy
func (r *AccessPolicyRepository) Load(_ context.Context) (*models.AccessPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.policy == nil {
		return nil, repositories.ErrNotFound
	}
	p := *r.policy
	return &p, nil
}

// CreateOnce stores the policy if none exists
func (r *AccessPolicyRepository) CreateOnce(_ context.Context, policy *models.AccessPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.policy != nil {
		return repositories.ErrAlreadyExists
	}
	p := *policy
	r.policy = &p
	return nil
}

// ReceiptRepository implements repositories.ReceiptRepository
type ReceiptRepository struct {
	mu       sync.Mutex
	receipts map[uint64]*models.Receipt
}

// NewReceiptRepository creates a new ReceiptRepository
func NewReceiptRepository() *ReceiptRepository {
	return &ReceiptRepository{receipts: map[uint64]*models.Receipt{}}
}

func copyReceipt(r *models.Receipt) *models.Receipt {
	out := *r
	out.Outcome = append([]int(nil), r.Outcome...)
	return &out
}

// Create stores a receipt, ignoring duplicates
func (r *ReceiptRepository) Create(_ context.Context, receipt *models.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.receipts[receipt.RoundID]; ok {
		return nil
	}
	r.receipts[receipt.RoundID] = copyReceipt(receipt)
	return nil
}

// FindByRoundID finds a receipt by round
func (r *ReceiptRepository) FindByRoundID(_ context.Context, roundID uint64) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receipts[roundID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyReceipt(rec), nil
}

func (r *ReceiptRepository) sortedDesc() []*models.Receipt {
	out := make([]*models.Receipt, 0, len(r.receipts))
	for _, rec := range r.receipts {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundID > out[j].RoundID })
	return out
}

// FindLatest returns the receipt with the highest round id
func (r *ReceiptRepository) FindLatest(_ context.Context) (*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sortedDesc()
	if len(all) == 0 {
		return nil, repositories.ErrNotFound
	}
	return copyReceipt(all[0]), nil
}

// FindRecentWinners returns up to limit receipts that paid a winner, newest first
func (r *ReceiptRepository) FindRecentWinners(_ context.Context, limit int) ([]*models.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Receipt{}
	for _, rec := range r.sortedDesc() {
		if len(out) >= limit {
			break
		}
		if rec.HasWinner() {
			out = append(out, copyReceipt(rec))
		}
	}
	return out, nil
}

// RolloverRepository implements repositories.RolloverRepository
type RolloverRepository struct {
	mu        sync.Mutex
	rollovers []*models.Rollover
}

// NewRolloverRepository creates a new RolloverRepository
func NewRolloverRepository() *RolloverRepository {
	return &RolloverRepository{}
}

// Create stores a rollover, ignoring a repeated source round
func (r *RolloverRepository) Create(_ context.Context, rollover *models.Rollover) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rollovers {
		if existing.SourceRoundID == rollover.SourceRoundID {
			return nil
		}
	}
	c := *rollover
	r.rollovers = append(r.rollovers, &c)
	return nil
}

// FindByDestinationRound lists rollovers carried into roundID
func (r *RolloverRepository) FindByDestinationRound(_ context.Context, roundID uint64) ([]*models.Rollover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Rollover{}
	for _, ro := range r.rollovers {
		if ro.DestinationRoundID == roundID {
			c := *ro
			out = append(out, &c)
		}
	}
	return out, nil
}

// LedgerRepository implements repositories.LedgerRepository
type LedgerRepository struct {
	mu       sync.Mutex
	balances map[models.Identity]models.Amount
	applied  map[string]bool
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		balances: map[models.Identity]models.Amount{},
		applied:  map[string]bool{},
	}
}

// Credit adds amount to a balance once per reference
func (r *LedgerRepository) Credit(_ context.Context, to models.Identity, amount models.Amount, reference string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied[reference] {
		return false, nil
	}
	balance, err := r.balances[to].Add(amount)
	if err != nil {
		return false, err
	}
	r.applied[reference] = true
	r.balances[to] = balance
	return true, nil
}

// Balance returns the credited total for who
func (r *LedgerRepository) Balance(_ context.Context, who models.Identity) (models.Amount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[who], nil
}

var (
	_ repositories.RoundRepository        = (*RoundRepository)(nil)
	_ repositories.AccessPolicyRepository = (*AccessPolicyRepository)(nil)
	_ repositories.ReceiptRepository      = (*ReceiptRepository)(nil)
	_ repositories.RolloverRepository     = (*RolloverRepository)(nil)
	_ repositories.LedgerRepository       = (*LedgerRepository)(nil)
)
