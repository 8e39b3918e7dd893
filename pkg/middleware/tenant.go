package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradesmatepro/fulfillment-service/pkg/tenant"
)

// HeaderTenantID carries the tenant identifier on inbound requests
const HeaderTenantID = "X-Tenant-ID"

// TenantConfig holds configuration for tenant scoping middleware
type TenantConfig struct {
	// Required rejects requests without a tenant header when true
	Required bool

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string
}

// DefaultTenantConfig returns a permissive single-tenant configuration
func DefaultTenantConfig() *TenantConfig {
	return &TenantConfig{
		Required:        false,
		DefaultTenantID: "default",
	}
}

// TenantScope extracts the tenant ID from headers and adds it to the request context.
// Downstream repositories read it back via the tenant package.
func TenantScope(config *TenantConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantConfig()
	}

	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)

		if tenantID == "" {
			if config.Required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"code":    "MISSING_TENANT_CONTEXT",
					"message": "Tenant context is required",
				})
				return
			}
			tenantID = config.DefaultTenantID
		}

		ctx := tenant.WithTenant(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenantId", tenantID)

		c.Next()
	}
}

// GetTenantID extracts the tenant ID from the gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenantId")
}
