package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"transit-analytics-api/config"
	"transit-analytics-api/forecast"
)

// ErrInvalidInput marks requests rejected at the orchestrator boundary,
// before any fetch or compute work.
var ErrInvalidInput = errors.New("forecast: invalid input")

// DemandGateway abstracts the historical data source so the orchestrator can
// be exercised against stubs.
type DemandGateway interface {
	GetHistoricalDemand(ctx context.Context, routeID *int, days int) ([]forecast.Observation, error)
}

// PredictionPoint is one entry of the ordered forecast list.
type PredictionPoint struct {
	HourOffset      int     `json:"hour_offset"`
	PredictedDemand float64 `json:"predicted_demand"`
	Confidence      float64 `json:"confidence"`
}

// PredictionResponse is the forecast output contract.
type PredictionResponse struct {
	RouteID         int               `json:"route_id"`
	Predictions     []PredictionPoint `json:"predictions"`
	ConfidenceScore float64           `json:"confidence_score"`
	ModelVersion    string            `json:"model_version"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// TrainResult summarizes a completed training run.
type TrainResult struct {
	FinalLoss       float64   `json:"final_loss"`
	FinalMAE        float64   `json:"final_mae"`
	EpochsCompleted int       `json:"epochs_completed"`
	TrainedAt       time.Time `json:"trained_at"`
}

// TrendPoint is an averaged demand bucket.
type TrendPoint struct {
	Label     string  `json:"label"`
	AvgDemand float64 `json:"avg_demand"`
}

// TrendsResponse groups hourly and daily demand averages.
type TrendsResponse struct {
	HourlyTrends []TrendPoint `json:"hourly_trends"`
	DailyTrends  []TrendPoint `json:"daily_trends"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// ForecastService orchestrates the demand forecast path: choose the data
// source (real vs synthetic), run the configured prediction strategy, and
// assemble the output contract. The forecast path always returns a
// well-formed result; the only hard failures are invalid input and explicit
// training errors.
type ForecastService struct {
	gateway   DemandGateway
	cache     *CacheService
	generator *forecast.Generator
	predictor forecast.Predictor
	slot      *forecast.ModelSlot
	cfg       config.ForecastConfig

	// trainMu serializes training; readers keep using the previously
	// published model until the swap.
	trainMu sync.Mutex
}

// NewForecastService wires the orchestrator. The prediction strategy is
// resolved here, once, from configuration.
func NewForecastService(gateway DemandGateway, cache *CacheService, cfg config.ForecastConfig) *ForecastService {
	slot := &forecast.ModelSlot{}

	model := forecast.NewSequenceModel(0)
	if cfg.ModelPath != "" {
		if err := model.Load(cfg.ModelPath); err != nil {
			log.Printf("warning: no usable model snapshot (%v), predictions fall back to rule-based", err)
		}
	}
	slot.Store(model)

	return &ForecastService{
		gateway:   gateway,
		cache:     cache,
		generator: forecast.NewGenerator(0),
		predictor: forecast.NewPredictor(forecast.Strategy(cfg.Strategy), slot, 0),
		slot:      slot,
		cfg:       cfg,
	}
}

// Forecast predicts demand for the next hoursAhead hours on a route.
func (s *ForecastService) Forecast(ctx context.Context, routeID, hoursAhead int) (*PredictionResponse, error) {
	if routeID < 0 {
		return nil, fmt.Errorf("%w: route_id must not be negative", ErrInvalidInput)
	}
	maxHours := s.cfg.MaxHoursAhead
	if maxHours <= 0 {
		maxHours = 48
	}
	if hoursAhead <= 0 || hoursAhead > maxHours {
		return nil, fmt.Errorf("%w: hours_ahead must be in 1..%d", ErrInvalidInput, maxHours)
	}

	cacheKey := fmt.Sprintf("demand:predict:%d:%d", routeID, hoursAhead)
	if s.cache != nil {
		var cached PredictionResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached.Predictions) > 0 {
			return &cached, nil
		}
	}

	recent := s.recentObservations(ctx, routeID)

	preds, err := s.predictor.Predict(ctx, recent, hoursAhead)
	if err != nil {
		return nil, err
	}

	resp := &PredictionResponse{
		RouteID:         routeID,
		Predictions:     make([]PredictionPoint, len(preds)),
		ConfidenceScore: s.predictor.Confidence(),
		ModelVersion:    s.predictor.Version(),
		GeneratedAt:     time.Now().UTC(),
	}
	for i, p := range preds {
		if p < forecast.DemandFloor {
			p = forecast.DemandFloor
		}
		resp.Predictions[i] = PredictionPoint{
			HourOffset:      i + 1,
			PredictedDemand: p,
			Confidence:      s.predictor.Confidence(),
		}
	}

	if s.cache != nil {
		ttl := time.Duration(s.cfg.CacheTTLSec) * time.Second
		go s.cache.Set(context.Background(), cacheKey, resp, ttl)
	}
	return resp, nil
}

// recentObservations fetches real history, synthesizing a plausible series
// when the gateway has nothing. Gateway errors and empty results are treated
// identically and never surfaced.
func (s *ForecastService) recentObservations(ctx context.Context, routeID int) []forecast.Observation {
	var routePtr *int
	if routeID > 0 {
		routePtr = &routeID
	}

	if s.gateway != nil {
		recent, err := s.gateway.GetHistoricalDemand(ctx, routePtr, s.cfg.HistoryDays)
		if err != nil {
			log.Printf("warning: historical demand fetch failed (%v), using synthetic data", err)
		} else if len(recent) > 0 {
			return recent
		} else {
			log.Printf("warning: no historical demand for route %d, using synthetic data", routeID)
		}
	}
	return s.generator.Generate(100)
}

// Train fits a fresh model on synthetic data and publishes it atomically.
// Concurrent forecasts keep reading the previous snapshot until the swap.
// Failures are surfaced to the caller and never retried here.
func (s *ForecastService) Train(ctx context.Context, epochs int) (*TrainResult, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("%w: epochs must be positive", ErrInvalidInput)
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	rows := s.generator.Generate(2000)

	model := forecast.NewSequenceModel(0)
	history, err := model.Train(ctx, rows, epochs, 32, s.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	s.slot.Store(model)

	n := len(history.Loss)
	return &TrainResult{
		FinalLoss:       history.Loss[n-1],
		FinalMAE:        history.MAE[n-1],
		EpochsCompleted: n,
		TrainedAt:       time.Now().UTC(),
	}, nil
}

// Trends computes hourly and daily demand averages over the last days of
// history, synthesizing when no real data exists.
func (s *ForecastService) Trends(ctx context.Context, days int) (*TrendsResponse, error) {
	if days <= 0 || days > 90 {
		return nil, fmt.Errorf("%w: days must be in 1..90", ErrInvalidInput)
	}

	cacheKey := fmt.Sprintf("demand:trends:%d", days)
	if s.cache != nil {
		var cached TrendsResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && len(cached.HourlyTrends) > 0 {
			return &cached, nil
		}
	}

	var rows []forecast.Observation
	if s.gateway != nil {
		fetched, err := s.gateway.GetHistoricalDemand(ctx, nil, days)
		if err != nil {
			log.Printf("warning: trends fetch failed (%v), using synthetic data", err)
		} else {
			rows = fetched
		}
	}
	if len(rows) == 0 {
		rows = s.generator.Generate(days * 24)
	}

	hourSum := make(map[int]float64)
	hourN := make(map[int]int)
	daySum := make(map[string]float64)
	dayN := make(map[string]int)
	dayOrder := []string{}
	for _, o := range rows {
		hourSum[o.Hour] += o.Demand
		hourN[o.Hour]++
		day := o.Timestamp.Format("2006-01-02")
		if dayN[day] == 0 {
			dayOrder = append(dayOrder, day)
		}
		daySum[day] += o.Demand
		dayN[day]++
	}

	resp := &TrendsResponse{GeneratedAt: time.Now().UTC()}
	for h := 0; h < 24; h++ {
		if hourN[h] == 0 {
			continue
		}
		resp.HourlyTrends = append(resp.HourlyTrends, TrendPoint{
			Label:     fmt.Sprintf("%02d:00", h),
			AvgDemand: hourSum[h] / float64(hourN[h]),
		})
	}
	for _, day := range dayOrder {
		resp.DailyTrends = append(resp.DailyTrends, TrendPoint{
			Label:     day,
			AvgDemand: daySum[day] / float64(dayN[day]),
		})
	}

	if s.cache != nil {
		ttl := time.Duration(s.cfg.CacheTTLSec) * time.Second
		go s.cache.Set(context.Background(), cacheKey, resp, ttl)
	}
	return resp, nil
}

// ModelState exposes the published model's lifecycle state for health and
// report endpoints.
func (s *ForecastService) ModelState() forecast.ModelState {
	if m := s.slot.Load(); m != nil {
		return m.State()
	}
	return forecast.StateUnloaded
}
