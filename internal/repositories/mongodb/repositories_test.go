package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"})
}

func TestAccessPolicyRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("create twice", func(mt *mtest.T) {
		repo := NewAccessPolicyRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), duplicateKey())

		require.NoError(mt, repo.CreateOnce(context.Background(), &models.AccessPolicy{Operator: "op"}))
		err := repo.CreateOnce(context.Background(), &models.AccessPolicy{Operator: "other"})
		assert.ErrorIs(mt, err, repositories.ErrAlreadyExists)
	})

	mt.Run("load missing", func(mt *mtest.T) {
		repo := NewAccessPolicyRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.access_policy", mtest.FirstBatch))
		_, err := repo.Load(context.Background())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})

	mt.Run("load", func(mt *mtest.T) {
		repo := NewAccessPolicyRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.access_policy", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "policy"}, {Key: "operator", Value: "op"}}))
		policy, err := repo.Load(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, models.Identity("op"), policy.Operator)
	})
}

func TestRoundRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("load current", func(mt *mtest.T) {
		repo := NewRoundRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.rounds", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "current"},
			{Key: "roundId", Value: int64(4)},
			{Key: "variant", Value: "exact"},
			{Key: "entryFee", Value: int64(10)},
			{Key: "carryover", Value: int64(20)},
			{Key: "state", Value: "OPEN"},
		}))
		round, err := repo.LoadCurrent(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, uint64(4), round.ID)
		assert.Equal(mt, models.VariantExact, round.Variant)
		assert.Equal(mt, models.Amount(20), round.Carryover)
		assert.NotNil(mt, round.Tickets)
	})

	mt.Run("load missing", func(mt *mtest.T) {
		repo := NewRoundRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.rounds", mtest.FirstBatch))
		_, err := repo.LoadCurrent(context.Background())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})

	mt.Run("save", func(mt *mtest.T) {
		repo := NewRoundRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		require.NoError(mt, repo.SaveCurrent(context.Background(), models.NewRound(1, models.VariantClosest, 10, 0, time.Time{})))
	})
}

func TestLedgerRepository_CreditIsIdempotent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("credit", func(mt *mtest.T) {
		repo := NewLedgerRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}), duplicateKey())

		applied, err := repo.Credit(context.Background(), "alice", 10, "round-1")
		require.NoError(mt, err)
		assert.True(mt, applied)

		applied, err = repo.Credit(context.Background(), "alice", 10, "round-1")
		require.NoError(mt, err)
		assert.False(mt, applied)

		_, err = repo.Credit(context.Background(), "alice", 0, "round-2")
		assert.Error(mt, err)
	})
}

func TestReceiptRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("duplicate create is ignored", func(mt *mtest.T) {
		repo := NewReceiptRepository(mt.DB)
		mt.AddMockResponses(duplicateKey())
		assert.NoError(mt, repo.Create(context.Background(), &models.Receipt{RoundID: 1}))
	})

	mt.Run("latest missing", func(mt *mtest.T) {
		repo := NewReceiptRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.receipts", mtest.FirstBatch))
		_, err := repo.FindLatest(context.Background())
		assert.ErrorIs(mt, err, repositories.ErrNotFound)
	})

	mt.Run("recent winners", func(mt *mtest.T) {
		repo := NewReceiptRepository(mt.DB)
		first := mtest.CreateCursorResponse(1, "test.receipts", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: int64(3)}, {Key: "winner", Value: "bob"}, {Key: "amountPaid", Value: int64(30)}},
			bson.D{{Key: "_id", Value: int64(1)}, {Key: "winner", Value: "alice"}, {Key: "amountPaid", Value: int64(10)}})
		last := mtest.CreateCursorResponse(0, "test.receipts", mtest.NextBatch)
		mt.AddMockResponses(first, last)

		winners, err := repo.FindRecentWinners(context.Background(), 5)
		require.NoError(mt, err)
		require.Len(mt, winners, 2)
		assert.Equal(mt, uint64(3), winners[0].RoundID)
		assert.Equal(mt, models.Identity("bob"), winners[0].Winner)
	})
}
