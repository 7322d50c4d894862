package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"transit-analytics-api/services"

	"github.com/gin-gonic/gin"
)

type DemandHandler struct {
	forecasts *services.ForecastService
	gateway   *services.DemandDataService
}

func NewDemandHandler(forecasts *services.ForecastService, gateway *services.DemandDataService) *DemandHandler {
	return &DemandHandler{forecasts: forecasts, gateway: gateway}
}

type PredictRequest struct {
	RouteID    int `json:"route_id" binding:"required,min=1"`
	HoursAhead int `json:"hours_ahead" binding:"omitempty,min=1"`
}

// Predict handles POST /api/v1/demand/predict.
func (h *DemandHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.HoursAhead == 0 {
		req.HoursAhead = 24
	}

	resp, err := h.forecasts.Forecast(c.Request.Context(), req.RouteID, req.HoursAhead)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "forecast failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetForecast handles GET /api/v1/demand/forecast/:route_id.
func (h *DemandHandler) GetForecast(c *gin.Context) {
	routeID, err := strconv.Atoi(c.Param("route_id"))
	if err != nil || routeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route_id, must be a positive integer"})
		return
	}

	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours parameter, must be a positive integer"})
		return
	}

	resp, err := h.forecasts.Forecast(c.Request.Context(), routeID, hours)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "forecast failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTrends handles GET /api/v1/demand/trends.
func (h *DemandHandler) GetTrends(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter, must be a positive integer"})
		return
	}

	resp, err := h.forecasts.Trends(c.Request.Context(), days)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trends computation failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Train handles POST /api/v1/demand/train. Training failures surface to the
// caller with diagnostic detail; they are never retried here.
func (h *DemandHandler) Train(c *gin.Context) {
	epochs, err := strconv.Atoi(c.DefaultQuery("epochs", "50"))
	if err != nil || epochs <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid epochs parameter, must be a positive integer"})
		return
	}

	result, err := h.forecasts.Train(c.Request.Context(), epochs)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"message":          "model trained successfully",
		"epochs_completed": result.EpochsCompleted,
		"final_loss":       result.FinalLoss,
		"final_mae":        result.FinalMAE,
		"trained_at":       result.TrainedAt,
	})
}

// GetRealtimeMetrics handles GET /api/v1/demand/metrics/realtime.
func (h *DemandHandler) GetRealtimeMetrics(c *gin.Context) {
	var routePtr *int
	if raw := c.Query("route_id"); raw != "" {
		routeID, err := strconv.Atoi(raw)
		if err != nil || routeID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route_id, must be a positive integer"})
			return
		}
		routePtr = &routeID
	}

	metrics := h.gateway.GetRealtimeMetrics(c.Request.Context(), routePtr)
	c.JSON(http.StatusOK, metrics)
}
