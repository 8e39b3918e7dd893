package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
)

const movementsCollection = "movements"

// MovementRepository is the MongoDB implementation of
// domain.MovementRepository. The collection is append-only.
type MovementRepository struct {
	collection *GuardedCollection
	logger     *logging.Logger
}

// NewMovementRepository creates a movement repository and ensures its
// indexes.
func NewMovementRepository(client *Client, logger *logging.Logger) *MovementRepository {
	repo := &MovementRepository{
		collection: client.Collection(movementsCollection),
		logger:     logger,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		logger.Warn("Failed to create movement indexes", "error", err)
	}
	return repo
}

func (r *MovementRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "itemId", Value: 1},
			{Key: "locationId", Value: 1},
			{Key: "createdAt", Value: -1},
		}},
		{Keys: bson.D{{Key: "referenceId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Insert appends a ledger entry. Entries are never updated or deleted.
func (r *MovementRepository) Insert(ctx context.Context, movement *domain.Movement) error {
	if _, err := r.collection.InsertOne(ctx, toMovementDoc(movement)); err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

// FindByItemLocation returns movements for an item/location pair, most recent
// first. A non-positive limit returns the full history.
func (r *MovementRepository) FindByItemLocation(ctx context.Context, itemID, locationID string, limit int) ([]*domain.Movement, error) {
	filter := tenantFilter(ctx, bson.M{
		"itemId":     itemID,
		"locationId": locationID,
	})
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []movementDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode movements: %w", err)
	}

	movements := make([]*domain.Movement, 0, len(docs))
	for i := range docs {
		movement, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, nil
}
