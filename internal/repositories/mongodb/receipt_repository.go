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

// ReceiptRepository implements the repositories.ReceiptRepository interface
type ReceiptRepository struct {
	collection *mongo.Collection
}

// NewReceiptRepository creates a new ReceiptRepository
func NewReceiptRepository(db *mongo.Database) repositories.ReceiptRepository {
	return &ReceiptRepository{
		collection: db.Collection("receipts"),
	}
}

// Create inserts a receipt keyed by round id. A duplicate round is ignored.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	_, err := r.collection.InsertOne(ctx, receipt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create receipt for round %d: %w", receipt.RoundID, err)
	}
	return nil
}

// FindByRoundID finds the receipt of a settled round
func (r *ReceiptRepository) FindByRoundID(ctx context.Context, roundID uint64) (*models.Receipt, error) {
	var receipt models.Receipt
	err := r.collection.FindOne(ctx, bson.M{"_id": roundID}).Decode(&receipt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindLatest returns the most recently settled round
func (r *ReceiptRepository) FindLatest(ctx context.Context) (*models.Receipt, error) {
	opts := options.FindOne().SetSort(bson.M{"_id": -1})
	var receipt models.Receipt
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&receipt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find latest receipt: %w", err)
	}
	return &receipt, nil
}

// FindRecentWinners returns receipts that paid a winner, newest first
func (r *ReceiptRepository) FindRecentWinners(ctx context.Context, limit int) ([]*models.Receipt, error) {
	filter := bson.M{"winner": bson.M{"$exists": true, "$ne": ""}}
	opts := options.Find().SetSort(bson.M{"_id": -1}).SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute find query: %w", err)
	}
	defer cursor.Close(ctx)

	var receipts []*models.Receipt
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, fmt.Errorf("failed to decode receipts: %w", err)
	}
	if receipts == nil {
		receipts = []*models.Receipt{}
	}
	return receipts, nil
}
