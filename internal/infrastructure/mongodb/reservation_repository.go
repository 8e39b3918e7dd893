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

const reservationsCollection = "reservations"

// ReservationRepository is the MongoDB implementation of
// domain.ReservationRepository.
type ReservationRepository struct {
	collection *GuardedCollection
	logger     *logging.Logger
}

// NewReservationRepository creates a reservation repository and ensures its
// indexes.
func NewReservationRepository(client *Client, logger *logging.Logger) *ReservationRepository {
	repo := &ReservationRepository{
		collection: client.Collection(reservationsCollection),
		logger:     logger,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		logger.Warn("Failed to create reservation indexes", "error", err)
	}
	return repo
}

func (r *ReservationRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "jobId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{
			{Key: "jobId", Value: 1},
			{Key: "itemId", Value: 1},
			{Key: "locationId", Value: 1},
			{Key: "status", Value: 1},
		}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save upserts the reservation by ID.
func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.Reservation) error {
	doc := toReservationDoc(reservation)
	filter := bson.M{"_id": reservation.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

// FindActiveByJob returns the active reservations for a job, oldest first.
func (r *ReservationRepository) FindActiveByJob(ctx context.Context, jobID string) ([]*domain.Reservation, error) {
	filter := tenantFilter(ctx, bson.M{
		"jobId":  jobID,
		"status": string(domain.ReservationStatusActive),
	})
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reservationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	reservations := make([]*domain.Reservation, 0, len(docs))
	for i := range docs {
		reservation, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

// FindActiveByJobAndItem returns the active reservation for a job line item
// pair, or nil when the job holds nothing there.
func (r *ReservationRepository) FindActiveByJobAndItem(ctx context.Context, jobID, itemID, locationID string) (*domain.Reservation, error) {
	filter := tenantFilter(ctx, bson.M{
		"jobId":      jobID,
		"itemId":     itemID,
		"locationId": locationID,
		"status":     string(domain.ReservationStatusActive),
	})

	var doc reservationDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return doc.toDomain()
}
