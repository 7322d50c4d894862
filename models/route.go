package models

import "time"

type Route struct {
	RouteID   int       `gorm:"column:route_id;primaryKey" json:"route_id"`
	Label     string    `gorm:"column:label" json:"label"`
	Active    bool      `gorm:"column:active;default:true" json:"active"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Route) TableName() string { return "routes" }
