package handlers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"transit-analytics-api/services"

	"github.com/gin-gonic/gin"
)

// ReportsHandler serves dashboard KPIs and report generation. These are
// mock-data generators carrying no internal state; they exist for the
// operations dashboard alongside the forecast endpoints.
type ReportsHandler struct {
	cache     *services.CacheService
	forecasts *services.ForecastService
}

func NewReportsHandler(cache *services.CacheService, forecasts *services.ForecastService) *ReportsHandler {
	return &ReportsHandler{cache: cache, forecasts: forecasts}
}

type KPIResponse struct {
	TotalPassengers int       `json:"total_passengers"`
	TotalRevenue    float64   `json:"total_revenue"`
	AvgOccupancy    float64   `json:"avg_occupancy"`
	RoutesActive    int       `json:"routes_active"`
	PeakHour        int       `json:"peak_hour"`
	ModelState      string    `json:"model_state"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// GetKPIs handles GET /api/v1/reports/kpis.
func (h *ReportsHandler) GetKPIs(c *gin.Context) {
	const cacheKey = "reports:kpis"

	var cached KPIResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && !cached.GeneratedAt.IsZero() {
		c.JSON(http.StatusOK, cached)
		return
	}

	peakHours := []int{7, 8, 17, 18}
	kpi := KPIResponse{
		TotalPassengers: 5000 + rand.IntN(5000),
		TotalRevenue:    50000 + rand.Float64()*50000,
		AvgOccupancy:    0.6 + rand.Float64()*0.3,
		RoutesActive:    10 + rand.IntN(15),
		PeakHour:        peakHours[rand.IntN(len(peakHours))],
		ModelState:      string(h.forecasts.ModelState()),
		GeneratedAt:     time.Now().UTC(),
	}

	go h.cache.Set(context.Background(), cacheKey, kpi, 60*time.Second)

	c.JSON(http.StatusOK, kpi)
}

type GenerateReportRequest struct {
	ReportType string    `json:"report_type" binding:"required,oneof=demand ridership revenue"`
	DateFrom   time.Time `json:"date_from" binding:"required"`
	DateTo     time.Time `json:"date_to" binding:"required"`
	Format     string    `json:"format" binding:"omitempty,oneof=json csv"`
}

// GenerateReport handles POST /api/v1/reports/generate.
func (h *ReportsHandler) GenerateReport(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.DateTo.After(req.DateFrom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_to must be after date_from"})
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	reportID := fmt.Sprintf("%s-%d", req.ReportType, time.Now().UnixNano())
	c.JSON(http.StatusAccepted, gin.H{
		"report_id":    reportID,
		"report_type":  req.ReportType,
		"status":       "queued",
		"format":       req.Format,
		"generated_at": time.Now().UTC(),
	})
}
