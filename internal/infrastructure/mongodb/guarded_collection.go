package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tradesmatepro/fulfillment-service/pkg/resilience"
)

// GuardedCollection wraps a mongo.Collection with circuit breaker
// protection. All repositories of one client share one breaker, so a
// struggling deployment trips it once for every collection. Business
// outcomes (a missing document, a duplicate key on a version race) do not
// count against the breaker; only infrastructure failures do.
type GuardedCollection struct {
	collection *mongo.Collection
	breaker    *resilience.CircuitBreaker
}

// FindOne runs the query through the breaker. ErrNoDocuments is a normal
// outcome and is not counted as a failure.
func (c *GuardedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		res := c.collection.FindOne(ctx, filter, opts...)
		if resErr := res.Err(); resErr != nil && !errors.Is(resErr, mongo.ErrNoDocuments) {
			return res, resErr
		}
		return res, nil
	})
	if res, ok := result.(*mongo.SingleResult); ok && res != nil {
		return res
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

// Find runs the query through the breaker.
func (c *GuardedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.Find(ctx, filter, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.Cursor), nil
}

// InsertOne runs the insert through the breaker. A duplicate key error is a
// lost version race, not an infrastructure failure, so it passes through
// without counting against the breaker.
func (c *GuardedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	var dupErr error
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		res, opErr := c.collection.InsertOne(ctx, document, opts...)
		if opErr != nil && mongo.IsDuplicateKeyError(opErr) {
			dupErr = opErr
			return res, nil
		}
		return res, opErr
	})
	if err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	return result.(*mongo.InsertOneResult), nil
}

// ReplaceOne runs the replace through the breaker.
func (c *GuardedCollection) ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.collection.ReplaceOne(ctx, filter, replacement, opts...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*mongo.UpdateResult), nil
}

// Indexes returns the raw index view. Index creation runs once at startup
// and is reported by the repository constructors themselves.
func (c *GuardedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}
