package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RolloverRepository implements the repositories.RolloverRepository interface
type RolloverRepository struct {
	collection *mongo.Collection
}

// NewRolloverRepository creates a new RolloverRepository
func NewRolloverRepository(db *mongo.Database) repositories.RolloverRepository {
	return &RolloverRepository{
		collection: db.Collection("rollovers"),
	}
}

// Create records a rollover keyed by its source round.
func (r *RolloverRepository) Create(ctx context.Context, rollover *models.Rollover) error {
	if rollover.CreatedAt.IsZero() {
		rollover.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, rollover)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create rollover record: %w", err)
	}
	return nil
}

// FindByDestinationRound finds all rollovers carried into a round
func (r *RolloverRepository) FindByDestinationRound(ctx context.Context, roundID uint64) ([]*models.Rollover, error) {
	filter := bson.M{"destinationRoundId": roundID}
	opts := options.Find().SetSort(bson.M{"createdAt": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding rollovers into round %d: %w", roundID, err)
	}
	defer cursor.Close(ctx)

	var rollovers []*models.Rollover
	if err := cursor.All(ctx, &rollovers); err != nil {
		return nil, fmt.Errorf("error decoding rollovers into round %d: %w", roundID, err)
	}
	if rollovers == nil {
		rollovers = []*models.Rollover{}
	}
	return rollovers, nil
}
