package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/ArowuTest/etherlotto-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const policyKey = "policy"

type policyDocument struct {
	Key                 string `bson:"_id"`
	models.AccessPolicy `bson:",inline"`
}

// Ensure accessPolicyRepository implements repositories.AccessPolicyRepository
var _ repositories.AccessPolicyRepository = (*accessPolicyRepository)(nil)

type accessPolicyRepository struct {
	collection *mongo.Collection
}

// NewAccessPolicyRepository creates a new repository for the operator policy
func NewAccessPolicyRepository(db *mongo.Database) repositories.AccessPolicyRepository {
	return &accessPolicyRepository{
		collection: db.Collection("access_policy"),
	}
}

// Load reads the stored policy
func (r *accessPolicyRepository) Load(ctx context.Context) (*models.AccessPolicy, error) {
	var doc policyDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": policyKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load access policy: %w", err)
	}
	return &doc.AccessPolicy, nil
}

// CreateOnce inserts the policy; the fixed key makes a second insert fail.
func (r *accessPolicyRepository) CreateOnce(ctx context.Context, policy *models.AccessPolicy) error {
	_, err := r.collection.InsertOne(ctx, policyDocument{Key: policyKey, AccessPolicy: *policy})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repositories.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create access policy: %w", err)
	}
	return nil
}
