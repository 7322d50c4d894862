package handlers

import (
	"context"
	"net/http"
	"time"

	"transit-analytics-api/models"
	"transit-analytics-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ForecastsHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewForecastsHandler(db *gorm.DB, cache *services.CacheService) *ForecastsHandler {
	return &ForecastsHandler{db: db, cache: cache}
}

// GetStored lists forecasts persisted by the forecaster worker, newest
// first, cursor-paginated by timestamp.
func (h *ForecastsHandler) GetStored(c *gin.Context) {
	p := ParsePagination(c)
	routeID := c.Query("route_id")
	cacheKey := p.CacheKey("forecasts", routeID)

	var cached CursorResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Model(&models.DemandForecast{}).
		Order("ts DESC, hour_offset ASC").
		Limit(p.Limit + 1)

	if p.Before != nil {
		query = query.Where("ts < ?", *p.Before)
	}
	if routeID != "" {
		query = query.Where("route_id = ?", routeID)
	}

	var rows []models.DemandForecast
	if err := query.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	keep, hasMore := p.Page(len(rows))
	rows = rows[:keep]

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = Cursor(rows[len(rows)-1].TS)
	}

	resp := CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, 30*time.Second)

	c.JSON(http.StatusOK, resp)
}
