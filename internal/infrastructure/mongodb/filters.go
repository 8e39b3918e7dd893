package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// tenantFilter scopes a query to the tenant carried in the context. Queries
// without tenant context stay unscoped so internal jobs can see everything.
func tenantFilter(ctx context.Context, filter bson.M) bson.M {
	if tenantID, err := tenant.FromContext(ctx); err == nil && tenantID != "" {
		filter["tenantId"] = tenantID
	}
	return filter
}
