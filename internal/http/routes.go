package http

import (
	"github.com/gin-gonic/gin"
)

// RouteGroup defines a group of routes that can be registered.
type RouteGroup interface {
	// RegisterRoutes registers routes to the given router group.
	RegisterRoutes(rg *gin.RouterGroup)
}

// LookupRoutes registers the distance and geocode endpoints.
type LookupRoutes struct {
	handler *Handler
}

// NewLookupRoutes creates a new LookupRoutes instance.
func NewLookupRoutes(handler *Handler) *LookupRoutes {
	return &LookupRoutes{handler: handler}
}

// RegisterRoutes registers the lookup endpoints.
func (r *LookupRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/distance", r.handler.Distance)
	rg.POST("/distance/batch", r.handler.DistanceBatch)
	rg.POST("/geocode", r.handler.Geocode)
	rg.POST("/geocode/batch", r.handler.GeocodeBatch)
}

// CacheRoutes registers the cache performance and administration endpoints.
type CacheRoutes struct {
	handler *Handler
}

// NewCacheRoutes creates a new CacheRoutes instance.
func NewCacheRoutes(handler *Handler) *CacheRoutes {
	return &CacheRoutes{handler: handler}
}

// RegisterRoutes registers the /cache endpoints. Stats and maintenance are
// only available when the handler has a maintainer.
func (r *CacheRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	cache := rg.Group("/cache")
	cache.GET("/performance", r.handler.Performance)
	if r.handler.maintenance == nil {
		return
	}
	cache.GET("/stats", r.handler.Stats)
	cache.POST("/maintenance", r.handler.Maintenance)
}
