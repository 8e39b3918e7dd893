package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
)

const stockLevelsCollection = "stock_levels"

// StockLevelRepository is the MongoDB implementation of
// domain.StockLevelRepository.
type StockLevelRepository struct {
	collection *GuardedCollection
	logger     *logging.Logger
}

// NewStockLevelRepository creates a stock level repository and ensures its
// indexes.
func NewStockLevelRepository(client *Client, logger *logging.Logger) *StockLevelRepository {
	repo := &StockLevelRepository{
		collection: client.Collection(stockLevelsCollection),
		logger:     logger,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		logger.Warn("Failed to create stock level indexes", "error", err)
	}
	return repo
}

func (r *StockLevelRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "itemId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Find returns the level for an item/location pair, or nil when no movement
// has touched the pair yet.
func (r *StockLevelRepository) Find(ctx context.Context, itemID, locationID string) (*domain.StockLevel, error) {
	var doc stockLevelDoc
	err := r.collection.FindOne(ctx, tenantFilter(ctx, bson.M{"_id": stockLevelID(itemID, locationID)})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock level: %w", err)
	}
	return doc.toDomain()
}

// Save persists the level if the stored version still matches
// expectedVersion, then bumps the in-memory Version. This compare-and-swap is
// what serializes concurrent appends for the same pair.
func (r *StockLevelRepository) Save(ctx context.Context, level *domain.StockLevel, expectedVersion int64) error {
	doc := toStockLevelDoc(level)
	doc.Version = expectedVersion + 1

	if expectedVersion == 0 {
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert stock level: %w", err)
		}
		level.Version = doc.Version
		return nil
	}

	filter := bson.M{"_id": doc.ID, "version": expectedVersion}
	result, err := r.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to save stock level: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}

	level.Version = doc.Version
	return nil
}
