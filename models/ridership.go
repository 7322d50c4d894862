package models

import "time"

// RidershipRaw is one fare transaction as ingested from the payment backend.
// Hourly demand counts are aggregated from this table.
type RidershipRaw struct {
	TS      time.Time `gorm:"column:ts;primaryKey" json:"ts"`
	TxnID   string    `gorm:"column:txn_id;primaryKey" json:"txn_id"`
	RouteID int       `gorm:"column:route_id" json:"route_id"`
	StopID  string    `gorm:"column:stop_id" json:"stop_id"`
	Amount  float64   `gorm:"column:amount" json:"amount"`
}

func (RidershipRaw) TableName() string { return "ridership_raw" }
