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

const pickListsCollection = "pick_lists"

// PickListRepository is the MongoDB implementation of
// domain.PickListRepository.
type PickListRepository struct {
	collection *GuardedCollection
	logger     *logging.Logger
}

// NewPickListRepository creates a pick list repository and ensures its
// indexes.
func NewPickListRepository(client *Client, logger *logging.Logger) *PickListRepository {
	repo := &PickListRepository{
		collection: client.Collection(pickListsCollection),
		logger:     logger,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		logger.Warn("Failed to create pick list indexes", "error", err)
	}
	return repo
}

func (r *PickListRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "status", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save persists the pick list with an optimistic concurrency check on
// Version and bumps the in-memory Version on success.
func (r *PickListRepository) Save(ctx context.Context, pickList *domain.PickList) error {
	doc := toPickListDoc(pickList)
	doc.Version = pickList.Version + 1

	if pickList.Version == 0 {
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert pick list: %w", err)
		}
		pickList.Version = doc.Version
		return nil
	}

	filter := bson.M{"_id": pickList.ID, "version": pickList.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to save pick list: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}

	pickList.Version = doc.Version
	return nil
}

// FindByID retrieves a pick list by its ID.
func (r *PickListRepository) FindByID(ctx context.Context, pickListID string) (*domain.PickList, error) {
	var doc pickListDoc
	err := r.collection.FindOne(ctx, tenantFilter(ctx, bson.M{"_id": pickListID})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrPickListNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pick list: %w", err)
	}
	return doc.toDomain()
}

// FindCurrentByJob returns the newest non-discarded pick list for a job, or
// nil when the job has none.
func (r *PickListRepository) FindCurrentByJob(ctx context.Context, jobID string) (*domain.PickList, error) {
	filter := tenantFilter(ctx, bson.M{
		"jobId":  jobID,
		"status": bson.M{"$ne": string(domain.PickListStatusDiscarded)},
	})
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var doc pickListDoc
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find current pick list: %w", err)
	}
	return doc.toDomain()
}
