package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories/memory"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"github.com/stretchr/testify/require"
)

const (
	testFee      models.Amount   = 3_000_000_000_000_000 // 0.003 ether in wei
	testOperator models.Identity = "0xOperator000000000000000000000000000000001"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

type testEnv struct {
	svc       *LotteryServiceImpl
	rounds    *memory.RoundRepository
	policies  *memory.AccessPolicyRepository
	receipts  *memory.ReceiptRepository
	rollovers *memory.RolloverRepository
	ledger    *memory.LedgerRepository
}

type envOption func(*Dependencies)

func withTransfer(tc TransferChannel) envOption {
	return func(d *Dependencies) { d.Transfer = tc }
}

func withReceipts(rr repositories.ReceiptRepository) envOption {
	return func(d *Dependencies) { d.Receipts = rr }
}

func newTestEnv(t *testing.T, variant models.Variant, src randomness.Source, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		rounds:    memory.NewRoundRepository(),
		policies:  memory.NewAccessPolicyRepository(),
		receipts:  memory.NewReceiptRepository(),
		rollovers: memory.NewRolloverRepository(),
		ledger:    memory.NewLedgerRepository(),
	}
	env.svc = env.open(t, variant, src, opts...)
	return env
}

// open builds a service over the env's repositories, as a restart would.
func (e *testEnv) open(t *testing.T, variant models.Variant, src randomness.Source, opts ...envOption) *LotteryServiceImpl {
	t.Helper()
	deps := Dependencies{
		Rounds:    e.rounds,
		Policies:  e.policies,
		Receipts:  e.receipts,
		Rollovers: e.rollovers,
		Ledger:    e.ledger,
		Source:    src,
		Now:       fixedClock(),
	}
	for _, o := range opts {
		o(&deps)
	}
	svc, err := NewLotteryService(context.Background(),
		Settings{Variant: variant, EntryFee: testFee, Operator: testOperator}, deps)
	require.NoError(t, err)
	return svc
}

func (e *testEnv) enter(t *testing.T, owner models.Identity, prediction ...int) int {
	t.Helper()
	id, err := e.svc.Registry.Enter(context.Background(), owner, prediction, testFee)
	require.NoError(t, err)
	return id
}

// failingTransfer rejects the first n transfers, then delegates.
type failingTransfer struct {
	mu    sync.Mutex
	fails int
	calls int
	next  TransferChannel
}

func (f *failingTransfer) Transfer(ctx context.Context, to models.Identity, amount models.Amount, ref string) error {
	f.mu.Lock()
	f.calls++
	fail := f.fails > 0
	if fail {
		f.fails--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("recipient rejected funds")
	}
	return f.next.Transfer(ctx, to, amount, ref)
}

// gatedSource blocks the first value until released so a test can observe the DRAWING state.
type gatedSource struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
	inner   randomness.Source
}

func newGatedSource(inner randomness.Source) *gatedSource {
	return &gatedSource{started: make(chan struct{}), release: make(chan struct{}), inner: inner}
}

func (g *gatedSource) NextUniform(ctx context.Context, min, max int) (int, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.inner.NextUniform(ctx, min, max)
}

type brokenSource struct{}

func (brokenSource) NextUniform(context.Context, int, int) (int, error) {
	return 0, randomness.ErrUnavailable
}

// flakyReceipts fails the first n Create calls, then stores normally.
type flakyReceipts struct {
	*memory.ReceiptRepository
	mu    sync.Mutex
	fails int
}

func (f *flakyReceipts) Create(ctx context.Context, receipt *models.Receipt) error {
	f.mu.Lock()
	fail := f.fails > 0
	if fail {
		f.fails--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("mongo down")
	}
	return f.ReceiptRepository.Create(ctx, receipt)
}
