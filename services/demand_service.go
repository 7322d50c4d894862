package services

import (
	"context"
	"log"
	"time"

	"transit-analytics-api/forecast"
	"transit-analytics-api/models"

	"gorm.io/gorm"
)

// DemandDataService is the gateway to historical ridership data. It performs
// a single bounded-timeout query per call and leaves retry policy to the
// caller's fallback chain: an empty result and a query error are equivalent
// ("no real data") from the forecasting engine's point of view.
type DemandDataService struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewDemandDataService(db *gorm.DB, timeout time.Duration) *DemandDataService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DemandDataService{db: db, timeout: timeout}
}

type demandBucket struct {
	Bucket time.Time
	Demand int64
}

// GetHistoricalDemand aggregates fare transactions into hourly demand
// observations for the lookback window. routeID nil means all routes.
func (s *DemandDataService) GetHistoricalDemand(ctx context.Context, routeID *int, days int) ([]forecast.Observation, error) {
	if days <= 0 {
		days = 7
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	query := s.db.WithContext(ctx).
		Model(&models.RidershipRaw{}).
		Select("date_trunc('hour', ts) AS bucket, count(*) AS demand").
		Where("ts >= ?", since).
		Group("bucket").
		Order("bucket")
	if routeID != nil {
		query = query.Where("route_id = ?", *routeID)
	}

	var buckets []demandBucket
	if err := query.Scan(&buckets).Error; err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	obs := make([]forecast.Observation, len(buckets))
	for i, b := range buckets {
		ts := b.Bucket.UTC()
		dow := int(ts.Weekday())
		obs[i] = forecast.Observation{
			Timestamp:   ts,
			Hour:        ts.Hour(),
			DayOfWeek:   dow,
			Month:       int(ts.Month()),
			IsWeekend:   dow == 0 || dow == 6,
			Temperature: 20.0, // weather enrichment not ingested yet
			Demand:      float64(b.Demand),
		}
	}
	forecast.FillDerived(obs)

	log.Printf("fetched %d hourly demand records (lookback=%dd)", len(obs), days)
	return obs, nil
}

// RealtimeMetrics summarizes the most recent hour of ridership.
type RealtimeMetrics struct {
	TotalTransactions int64   `json:"total_transactions"`
	AvgAmount         float64 `json:"avg_amount"`
	CurrentHour       int     `json:"current_hour"`
}

// GetRealtimeMetrics returns last-hour totals, degrading to zeros when the
// backing store cannot answer.
func (s *DemandDataService) GetRealtimeMetrics(ctx context.Context, routeID *int) RealtimeMetrics {
	metrics := RealtimeMetrics{CurrentHour: time.Now().Hour()}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := s.db.WithContext(ctx).
		Model(&models.RidershipRaw{}).
		Select("count(*) AS total, coalesce(avg(amount), 0) AS avg_amount").
		Where("ts >= ?", time.Now().UTC().Add(-time.Hour))
	if routeID != nil {
		query = query.Where("route_id = ?", *routeID)
	}

	var row struct {
		Total     int64
		AvgAmount float64
	}
	if err := query.Scan(&row).Error; err != nil {
		log.Printf("realtime metrics query failed: %v", err)
		return metrics
	}

	metrics.TotalTransactions = row.Total
	metrics.AvgAmount = row.AvgAmount
	return metrics
}
