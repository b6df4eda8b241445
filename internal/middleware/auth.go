package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
)

const TokenHeader = "X-API-Token"

type PropertyResolver interface {
	PropertyByToken(ctx context.Context, token string) (*models.Property, error)
}

// PropertyAuth authenticates the query API by the property token sent in the
// X-API-Token header. Every handler behind it is scoped to that property.
func PropertyAuth(resolver PropertyResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(TokenHeader)
		if token == "" {
			abortUnauthorized(c, "API token header required")
			return
		}

		prop, err := resolver.PropertyByToken(c.Request.Context(), token)
		if errors.Is(err, repository.ErrNotFound) {
			abortUnauthorized(c, "Invalid API token")
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "Failed to verify API token"},
			})
			c.Abort()
			return
		}

		c.Set("property_id", prop.ID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": "UNAUTHORIZED", "message": message},
	})
	c.Abort()
}

func GetPropertyID(c *gin.Context) uint {
	id, exists := c.Get("property_id")
	if !exists {
		return 0
	}
	return id.(uint)
}
