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

type HistoryHandler struct {
	db    *gorm.DB
	cache *services.CacheService
}

func NewHistoryHandler(db *gorm.DB, cache *services.CacheService) *HistoryHandler {
	return &HistoryHandler{db: db, cache: cache}
}

// GetRecent lists raw fare transactions, newest first, cursor-paginated.
func (h *HistoryHandler) GetRecent(c *gin.Context) {
	p := ParsePagination(c)
	routeID := c.Query("route_id")
	cacheKey := p.CacheKey("ridership:recent", routeID)

	var cached CursorResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	query := h.db.Model(&models.RidershipRaw{}).Order("ts DESC").Limit(p.Limit + 1)
	if p.Before != nil {
		query = query.Where("ts < ?", *p.Before)
	}
	if routeID != "" {
		query = query.Where("route_id = ?", routeID)
	}

	var rows []models.RidershipRaw
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
	go h.cache.Set(context.Background(), cacheKey, resp, 5*time.Second)

	c.JSON(http.StatusOK, resp)
}
