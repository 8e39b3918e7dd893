package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
)

const jobsCollection = "jobs"

// JobRepository is the MongoDB implementation of domain.JobRepository.
type JobRepository struct {
	collection *GuardedCollection
	logger     *logging.Logger
}

// NewJobRepository creates a job repository and ensures its indexes.
func NewJobRepository(client *Client, logger *logging.Logger) *JobRepository {
	repo := &JobRepository{
		collection: client.Collection(jobsCollection),
		logger:     logger,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		logger.Warn("Failed to create job indexes", "error", err)
	}
	return repo
}

func (r *JobRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save persists the job with an optimistic concurrency check on Version and
// bumps the in-memory Version on success.
func (r *JobRepository) Save(ctx context.Context, job *domain.Job) error {
	doc := toJobDoc(job)
	doc.Version = job.Version + 1

	if job.Version == 0 {
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrConcurrentModification
			}
			return fmt.Errorf("failed to insert job: %w", err)
		}
		job.Version = doc.Version
		return nil
	}

	filter := bson.M{"_id": job.ID, "version": job.Version}
	result, err := r.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConcurrentModification
	}

	job.Version = doc.Version
	return nil
}

// FindByID retrieves a job by its ID.
func (r *JobRepository) FindByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var doc jobDoc
	err := r.collection.FindOne(ctx, tenantFilter(ctx, bson.M{"_id": jobID})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return doc.toDomain()
}
