package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type balanceDocument struct {
	Identity models.Identity `bson:"_id"`
	Balance  models.Amount   `bson:"balance"`
	Refs     []string        `bson:"refs"`
}

// LedgerRepository implements the repositories.LedgerRepository interface
type LedgerRepository struct {
	collection *mongo.Collection
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(db *mongo.Database) repositories.LedgerRepository {
	return &LedgerRepository{
		collection: db.Collection("balances"),
	}
}

// Credit atomically increments a balance unless reference was already applied.
func (r *LedgerRepository) Credit(ctx context.Context, to models.Identity, amount models.Amount, reference string) (bool, error) {
	if amount <= 0 {
		return false, errors.New("credit amount must be positive")
	}
	filter := bson.M{"_id": to, "refs": bson.M{"$ne": reference}}
	update := bson.M{
		"$inc":  bson.M{"balance": amount},
		"$push": bson.M{"refs": reference},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// The document exists and already carries the reference, so the upsert collided.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return true, nil
}

// Balance returns the credited total for an identity
func (r *LedgerRepository) Balance(ctx context.Context, who models.Identity) (models.Amount, error) {
	var doc balanceDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": who}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return doc.Balance, nil
}
