package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"transit-analytics-api/models"
	"transit-analytics-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RoutesHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewRoutesHandler(db *gorm.DB, cache *services.CacheService) *RoutesHandler {
	return &RoutesHandler{db: db, cache: cache}
}

// GetRoutes lists the route catalog; ?active=true narrows to routes
// currently in service.
func (h *RoutesHandler) GetRoutes(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	cacheKey := "routes:all"
	if activeOnly {
		cacheKey = "routes:active"
	}

	var cached struct {
		Data []models.Route `json:"data"`
	}
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Order("route_id")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var routes []models.Route
	if err := query.Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	resp := gin.H{"data": routes}
	go h.cache.Set(context.Background(), cacheKey, resp, 60*time.Second)

	c.JSON(http.StatusOK, resp)
}

// GetRoute returns one route by id.
func (h *RoutesHandler) GetRoute(c *gin.Context) {
	routeID, err := strconv.Atoi(c.Param("route_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route_id must be an integer"})
		return
	}

	var route models.Route
	if err := h.db.First(&route, "route_id = ?", routeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": route})
}
