package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories/memory"
	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_ClosestMatchPaysAndOpensNextRound(t *testing.T) {
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(503))
	env.enter(t, "alice", 500)
	env.enter(t, "bob", 501)
	env.enter(t, "carol", 900)

	receipt, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.RoundID)
	assert.Equal(t, models.Identity("bob"), receipt.Winner)
	assert.Equal(t, 3*testFee, receipt.AmountPaid)
	assert.Equal(t, []int{503}, receipt.Outcome)
	assert.Equal(t, 2, receipt.Score)
	assert.Equal(t, 3, receipt.Tickets)

	bal, err := env.svc.Balance(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 3*testFee, bal)

	r := env.svc.Round()
	assert.Equal(t, uint64(2), r.ID)
	assert.Equal(t, models.RoundStateOpen, r.State)
	assert.Empty(t, r.Tickets)
	assert.Zero(t, r.Pot)
	assert.Zero(t, r.Carryover)
	assert.Zero(t, r.Reserved)

	id := env.enter(t, "dave", 1)
	assert.Equal(t, 0, id)

	stored, err := env.receipts.FindByRoundID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, receipt, stored)
}

func TestSettle_FailedTransferReturnsRoundToDrawing(t *testing.T) {
	transfer := &failingTransfer{fails: 1}
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(10), withTransfer(transfer))
	transfer.next = NewLedgerTransfer(env.ledger)
	env.enter(t, "alice", 12)
	env.enter(t, "bob", 400)

	_, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.ErrorIs(t, err, ErrTransferFailed)

	r := env.svc.Round()
	assert.Equal(t, uint64(1), r.ID)
	assert.Equal(t, models.RoundStateDrawing, r.State)
	assert.Equal(t, 2*testFee, r.Pot)
	assert.Zero(t, r.Reserved)
	assert.Empty(t, r.Winner)
	require.NotNil(t, r.Pending)
	assert.Equal(t, models.Identity("alice"), r.Pending.Winner)

	_, err = env.svc.Registry.Enter(context.Background(), "carol", []int{1}, testFee)
	require.ErrorIs(t, err, ErrRoundClosed)
	_, err = env.svc.RetrySettlement(context.Background(), "bob")
	require.ErrorIs(t, err, ErrUnauthorized)

	receipt, err := env.svc.RetrySettlement(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("alice"), receipt.Winner)
	assert.Equal(t, 2*testFee, receipt.AmountPaid)
	assert.Equal(t, 2, transfer.calls)

	bal, err := env.svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2*testFee, bal)
	assert.Equal(t, uint64(2), env.svc.Round().ID)
}

func TestRetrySettlement_FinishesRoundAfterReceiptWriteFails(t *testing.T) {
	receipts := &flakyReceipts{ReceiptRepository: memory.NewReceiptRepository(), fails: 1}
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(20), withReceipts(receipts))
	env.enter(t, "alice", 21)
	env.enter(t, "bob", 300)

	_, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.Error(t, err)
	assert.Equal(t, models.RoundStateSettled, env.svc.Round().State)
	_, err = env.svc.Registry.Enter(context.Background(), "carol", []int{1}, testFee)
	require.ErrorIs(t, err, ErrRoundClosed)

	receipt, err := env.svc.RetrySettlement(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("alice"), receipt.Winner)
	assert.Equal(t, 2*testFee, receipt.AmountPaid)

	// The replayed transfer reuses the round reference, so alice is paid once.
	bal, err := env.svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2*testFee, bal)

	r := env.svc.Round()
	assert.Equal(t, uint64(2), r.ID)
	assert.Equal(t, models.RoundStateOpen, r.State)
	env.enter(t, "carol", 1)

	stored, err := receipts.FindByRoundID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, receipt, stored)
}

func TestSettle_BlockedRecipientKeepsFunds(t *testing.T) {
	env := newTestEnv(t, models.VariantExact, randomness.NewSequence(7))
	env.svc.Payout.channel = NewLedgerTransfer(env.ledger, "mallory")
	env.enter(t, "mallory", 7)

	_, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.ErrorIs(t, err, ErrTransferFailed)
	r := env.svc.Round()
	assert.Equal(t, models.RoundStateDrawing, r.State)
	assert.Equal(t, testFee, r.Payout())
}

// reentrantTransfer tries to settle again from inside the transfer.
type reentrantTransfer struct {
	svc  *LotteryServiceImpl
	next TransferChannel
	errs []error
}

func (r *reentrantTransfer) Transfer(ctx context.Context, to models.Identity, amount models.Amount, ref string) error {
	_, err := r.svc.RetrySettlement(ctx, testOperator)
	r.errs = append(r.errs, err)
	_, err = r.svc.Payout.Settle(ctx, r.svc.Round().Pending)
	r.errs = append(r.errs, err)
	_, err = r.svc.ExecuteDraw(ctx, testOperator)
	r.errs = append(r.errs, err)
	return r.next.Transfer(ctx, to, amount, ref)
}

func TestSettle_ReentrantCallDuringTransferIsRejected(t *testing.T) {
	transfer := &reentrantTransfer{}
	env := newTestEnv(t, models.VariantExact, randomness.NewSequence(42), withTransfer(transfer))
	transfer.svc = env.svc
	transfer.next = NewLedgerTransfer(env.ledger)
	env.enter(t, "alice", 42)
	env.enter(t, "bob", 41)

	receipt, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, 2*testFee, receipt.AmountPaid)

	require.Len(t, transfer.errs, 3)
	assert.ErrorIs(t, transfer.errs[0], ErrSettlementInProgress)
	assert.ErrorIs(t, transfer.errs[1], ErrSettlementInProgress)
	assert.ErrorIs(t, transfer.errs[2], ErrRoundNotOpen)

	bal, err := env.svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2*testFee, bal)
}

func TestSettle_ExactNoMatchRollsOver(t *testing.T) {
	env := newTestEnv(t, models.VariantExact, randomness.NewSequence(42, 42))
	env.enter(t, "alice", 7)
	env.enter(t, "bob", 8)

	receipt, err := env.svc.ExecuteDraw(context.Background(), testOperator)
	require.NoError(t, err)
	assert.False(t, receipt.HasWinner())
	assert.Zero(t, receipt.AmountPaid)
	assert.Equal(t, 2*testFee, receipt.RolledOver)

	r := env.svc.Round()
	assert.Equal(t, uint64(2), r.ID)
	assert.Zero(t, r.Pot)
	assert.Equal(t, 2*testFee, r.Carryover)

	rolls, err := env.rollovers.FindByDestinationRound(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rolls, 1)
	assert.Equal(t, uint64(1), rolls[0].SourceRoundID)
	assert.Equal(t, 2*testFee, rolls[0].Amount)
	assert.Equal(t, models.RolloverReasonNoMatch, rolls[0].Reason)

	status, err := env.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*testFee, status.CurrentPot)

	env.enter(t, "carol", 42)
	receipt, err = env.svc.ExecuteDraw(context.Background(), testOperator)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("carol"), receipt.Winner)
	assert.Equal(t, 3*testFee, receipt.AmountPaid)

	bal, err := env.svc.Balance(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, 3*testFee, bal)
	assert.Zero(t, env.svc.Round().Carryover)
}

func TestSettle_RejectsForeignResult(t *testing.T) {
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(5))
	env.enter(t, "alice", 5)

	_, err := env.svc.Payout.Settle(context.Background(), &models.DrawResult{RoundID: 1, Outcome: []int{5}, Winner: "alice"})
	require.ErrorIs(t, err, ErrNoPendingDraw)

	result, err := env.svc.Engine.Draw(context.Background(), testOperator)
	require.NoError(t, err)
	forged := *result
	forged.Winner = "mallory"
	_, err = env.svc.Payout.Settle(context.Background(), &forged)
	require.ErrorIs(t, err, ErrNoPendingDraw)

	_, err = env.svc.Payout.Settle(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoPendingDraw)

	receipt, err := env.svc.Payout.Settle(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, models.Identity("alice"), receipt.Winner)
}

func TestSettle_ReceiptsAreDeterministic(t *testing.T) {
	run := func() []*models.Receipt {
		env := newTestEnv(t, models.VariantPartial, randomness.NewSequence(1, 2, 3, 7, 8, 9, 40, 41, 42, 43, 44, 45))
		env.enter(t, "alice", 1, 2, 3, 4, 5, 6)
		env.enter(t, "bob", 1, 2, 3, 7, 10, 11)
		first, err := env.svc.ExecuteDraw(context.Background(), testOperator)
		require.NoError(t, err)
		env.enter(t, "carol", 40, 41, 1, 2, 3, 4)
		env.enter(t, "dave", 40, 41, 5, 6, 7, 8)
		second, err := env.svc.ExecuteDraw(context.Background(), testOperator)
		require.NoError(t, err)
		return []*models.Receipt{first, second}
	}

	a, b := run(), run()
	assert.Equal(t, a, b)
	assert.Equal(t, models.Identity("bob"), a[0].Winner)
	assert.Equal(t, 4, a[0].Score)
	assert.Equal(t, models.Identity("carol"), a[1].Winner)
	assert.Equal(t, 2, a[1].Score)
}

func TestLedgerTransfer_Validates(t *testing.T) {
	env := newTestEnv(t, models.VariantExact, randomness.NewSequence())
	tr := NewLedgerTransfer(env.ledger, "blocked")
	ctx := context.Background()

	assert.Error(t, tr.Transfer(ctx, "", 10, "r"))
	assert.Error(t, tr.Transfer(ctx, "alice", 0, "r"))
	assert.Error(t, tr.Transfer(ctx, "blocked", 10, "r"))

	require.NoError(t, tr.Transfer(ctx, "alice", 10, "round-9"))
	require.NoError(t, tr.Transfer(ctx, "alice", 10, "round-9"))
	bal, err := env.ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.Amount(10), bal)
}

var errDisk = errors.New("disk full")

func TestSettle_PersistFailureLeavesRoundDrawing(t *testing.T) {
	env := newTestEnv(t, models.VariantClosest, randomness.NewSequence(5))
	env.enter(t, "alice", 5)
	result, err := env.svc.Engine.Draw(context.Background(), testOperator)
	require.NoError(t, err)

	env.rounds.FailSave = errDisk
	_, err = env.svc.Payout.Settle(context.Background(), result)
	require.ErrorIs(t, err, errDisk)

	r := env.svc.Round()
	assert.Equal(t, models.RoundStateDrawing, r.State)
	assert.Equal(t, testFee, r.Pot)
	bal, err := env.svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, bal)
}
