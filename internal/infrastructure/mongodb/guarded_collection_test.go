package mongodb

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradesmatepro/fulfillment-service/pkg/logging"
	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
)

// unreachableClient builds a client whose server selection fails fast. No
// MongoDB deployment is contacted.
func unreachableClient(t *testing.T) *Client {
	t.Helper()
	raw, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Disconnect(context.Background()) })

	cfg := DefaultConfig()
	return &Client{
		client:   raw,
		database: raw.Database(cfg.Database),
		config:   cfg,
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("mongodb"), slog.Default()),
	}
}

func TestRepositoryConstructorSurvivesIndexFailure(t *testing.T) {
	client := unreachableClient(t)

	var buf bytes.Buffer
	logger := logging.New(&logging.Config{
		Level:       logging.LevelWarn,
		ServiceName: "fulfillment-service",
		Output:      &buf,
	})

	repo := NewReservationRepository(client, logger)
	require.NotNil(t, repo)
	assert.Contains(t, buf.String(), "Failed to create reservation indexes")
}

func TestGuardedCollectionTripsAfterConsecutiveFailures(t *testing.T) {
	client := unreachableClient(t)

	cfg := resilience.DefaultCircuitBreakerConfig("mongodb")
	cfg.FailureThreshold = 2
	collection := &GuardedCollection{
		collection: client.Database().Collection("things"),
		breaker:    resilience.NewCircuitBreaker(cfg, slog.Default()),
	}
	ctx := context.Background()

	_, err := collection.InsertOne(ctx, bson.M{"n": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)

	_, err = collection.InsertOne(ctx, bson.M{"n": 2})
	require.Error(t, err)

	// Two consecutive failures trip the breaker; the next call is rejected
	// without touching the collection.
	_, err = collection.InsertOne(ctx, bson.M{"n": 3})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
