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

const currentRoundKey = "current"

// roundDocument stores the current round under a fixed key.
type roundDocument struct {
	Key          string `bson:"_id"`
	models.Round `bson:",inline"`
}

// RoundRepository implements the repositories.RoundRepository interface
type RoundRepository struct {
	collection *mongo.Collection
}

// NewRoundRepository creates a new RoundRepository
func NewRoundRepository(db *mongo.Database) repositories.RoundRepository {
	return &RoundRepository{
		collection: db.Collection("rounds"),
	}
}

// LoadCurrent reads the current round
func (r *RoundRepository) LoadCurrent(ctx context.Context) (*models.Round, error) {
	var doc roundDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": currentRoundKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load current round: %w", err)
	}
	round := doc.Round
	if round.Tickets == nil {
		round.Tickets = []models.Ticket{}
	}
	return &round, nil
}

// SaveCurrent replaces the current round document, creating it on first use
func (r *RoundRepository) SaveCurrent(ctx context.Context, round *models.Round) error {
	doc := roundDocument{Key: currentRoundKey, Round: *round}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": currentRoundKey}, doc, opts); err != nil {
		return fmt.Errorf("failed to save round %d: %w", round.ID, err)
	}
	return nil
}
