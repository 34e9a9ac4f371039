package services

import (
	"context"
	"testing"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories/memory"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crashingTransfer optionally applies the transfer, then panics as if the process died.
type crashingTransfer struct {
	apply TransferChannel
}

func (c *crashingTransfer) Transfer(ctx context.Context, to models.Identity, amount models.Amount, ref string) error {
	if c.apply != nil {
		if err := c.apply.Transfer(ctx, to, amount, ref); err != nil {
			return err
		}
	}
	panic("process killed")
}

func TestNewLotteryService_ResumesSettledRound(t *testing.T) {
	for _, applied := range []bool{false, true} {
		crash := &crashingTransfer{}
		env := newTestEnv(t, models.VariantExact, randomness.NewSequence(7), withTransfer(crash))
		if applied {
			crash.apply = NewLedgerTransfer(env.ledger)
		}
		env.enter(t, "alice", 7)
		env.enter(t, "bob", 8)

		assert.Panics(t, func() { _, _ = env.svc.ExecuteDraw(context.Background(), testOperator) })
		persisted, err := env.rounds.LoadCurrent(context.Background())
		require.NoError(t, err)
		require.Equal(t, models.RoundStateSettled, persisted.State)
		assert.Equal(t, 2*testFee, persisted.Reserved)
		assert.Zero(t, persisted.Pot)

		svc := env.open(t, models.VariantExact, randomness.NewSequence())
		r := svc.Round()
		assert.Equal(t, uint64(2), r.ID)
		assert.Equal(t, models.RoundStateOpen, r.State)

		bal, err := svc.Balance(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, 2*testFee, bal, "applied=%v", applied)

		receipt, err := svc.LastReceipt(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), receipt.RoundID)
		assert.Equal(t, models.Identity("alice"), receipt.Winner)
	}
}

func TestNewLotteryService_ReopensDrawWithoutResult(t *testing.T) {
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence())
	env.enter(t, "alice", 1)
	env.enter(t, "bob", 2)

	r := env.svc.Round()
	r.State = models.RoundStateDrawing
	require.NoError(t, env.rounds.SaveCurrent(context.Background(), r))

	svc := env.open(t, models.VariantClosest, randomness.NewSequence(2))
	r = svc.Round()
	assert.Equal(t, models.RoundStateOpen, r.State)
	assert.Len(t, r.Tickets, 2)
	assert.Equal(t, 2*testFee, r.Pot)

	receipt, err := svc.ExecuteDraw(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("bob"), receipt.Winner)
}

func TestNewLotteryService_KeepsPendingResultForRetry(t *testing.T) {
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(600))
	env.enter(t, "alice", 100)
	env.enter(t, "bob", 700)
	_, err := env.svc.Engine.Draw(context.Background(), testOperator)
	require.NoError(t, err)

	svc := env.open(t, models.VariantClosest, randomness.NewSequence())
	r := svc.Round()
	require.Equal(t, models.RoundStateDrawing, r.State)
	require.NotNil(t, r.Pending)

	_, err = svc.ExecuteDraw(context.Background(), testOperator)
	require.ErrorIs(t, err, ErrRoundNotOpen)

	receipt, err := svc.RetrySettlement(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("bob"), receipt.Winner)
	assert.Equal(t, 100, receipt.Score)

	_, err = svc.RetrySettlement(context.Background(), testOperator)
	require.ErrorIs(t, err, ErrNoPendingDraw)
}

func TestNewLotteryService_ValidatesSettings(t *testing.T) {
	base := func() Dependencies {
		return Dependencies{
			Rounds:    memory.NewRoundRepository(),
			Policies:  memory.NewAccessPolicyRepository(),
			Receipts:  memory.NewReceiptRepository(),
			Rollovers: memory.NewRolloverRepository(),
			Ledger:    memory.NewLedgerRepository(),
			Source:    randomness.NewSequence(),
		}
	}
	ctx := context.Background()

	_, err := NewLotteryService(ctx, Settings{Variant: models.VariantExact, EntryFee: 0, Operator: testOperator}, base())
	assert.Error(t, err)
	_, err = NewLotteryService(ctx, Settings{Variant: "bingo", EntryFee: testFee, Operator: testOperator}, base())
	assert.Error(t, err)
	_, err = NewLotteryService(ctx, Settings{Variant: models.VariantExact, EntryFee: testFee}, base())
	assert.Error(t, err)

	deps := base()
	deps.Source = nil
	_, err = NewLotteryService(ctx, Settings{Variant: models.VariantExact, EntryFee: testFee, Operator: testOperator}, deps)
	assert.Error(t, err)
}

func TestEnsureAccessPolicy_IsWriteOnce(t *testing.T) {
	repo := memory.NewAccessPolicyRepository()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	policy, err := EnsureAccessPolicy(context.Background(), repo, "op-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("op-1"), policy.Operator)

	again, err := EnsureAccessPolicy(context.Background(), repo, "op-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, now, again.CreatedAt)

	_, err = EnsureAccessPolicy(context.Background(), repo, "op-2", now)
	require.Error(t, err)

	guard := NewAccessGuard(*policy)
	assert.True(t, guard.Authorize("op-1"))
	assert.False(t, guard.Authorize("op-2"))
	assert.False(t, guard.Authorize(""))
	assert.Equal(t, models.Identity("op-1"), guard.Operator())
}

func TestStatusAndWinners(t *testing.T) {
	env := newTestEnv(t, models.VariantExact, randomness.NewSequence(1, 2, 3))
	ctx := context.Background()

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.RoundID)
	assert.Equal(t, models.RoundStateOpen, status.State)
	assert.Equal(t, testFee, status.EntryFee)
	assert.Equal(t, testOperator, status.Operator)
	assert.Empty(t, status.LastWinner)

	_, err = env.svc.LastReceipt(ctx)
	require.Error(t, err)

	// round 1: alice wins, round 2: nobody, round 3: carol wins the carried pot
	env.enter(t, "alice", 1)
	_, err = env.svc.ExecuteDraw(ctx, testOperator)
	require.NoError(t, err)
	env.enter(t, "bob", 9)
	_, err = env.svc.ExecuteDraw(ctx, testOperator)
	require.NoError(t, err)

	status, err = env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.LastWinner)
	assert.Equal(t, []int{2}, status.LastOutcome)
	assert.Equal(t, testFee, status.Carryover)
	assert.Equal(t, testFee, status.CurrentPot)

	env.enter(t, "carol", 3)
	status, err = env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Players)
	assert.Equal(t, testFee, status.Pot)
	assert.Equal(t, 2*testFee, status.CurrentPot)

	_, err = env.svc.ExecuteDraw(ctx, testOperator)
	require.NoError(t, err)

	winners, err := env.svc.RecentWinners(ctx, 0)
	require.NoError(t, err)
	require.Len(t, winners, 2)
	assert.Equal(t, models.Identity("carol"), winners[0].Winner)
	assert.Equal(t, 2*testFee, winners[0].AmountPaid)
	assert.Equal(t, models.Identity("alice"), winners[1].Winner)

	winners, err = env.svc.RecentWinners(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, winners, 1)

	status, err = env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("carol"), status.LastWinner)
	assert.Equal(t, []int{3}, status.LastOutcome)
	assert.Equal(t, uint64(4), status.RoundID)
}
