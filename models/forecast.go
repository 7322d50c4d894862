package models

import "time"

// DemandForecast is one stored forecast point, written by the forecaster
// worker and read back through the paginated API.
type DemandForecast struct {
	TS              time.Time `gorm:"column:ts;primaryKey" json:"ts"`
	RouteID         int       `gorm:"column:route_id;primaryKey" json:"route_id"`
	HourOffset      int       `gorm:"column:hour_offset;primaryKey" json:"hour_offset"`
	PredictedDemand float64   `gorm:"column:predicted_demand" json:"predicted_demand"`
	Confidence      float64   `gorm:"column:confidence" json:"confidence"`
	ModelVersion    string    `gorm:"column:model_version" json:"model_version"`
}

func (DemandForecast) TableName() string { return "demand_forecasts" }
