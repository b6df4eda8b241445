package models

import (
	"time"
)

// Property is the tenant scope; its APIToken authenticates device reports.
type Property struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Municipality string    `gorm:"size:100" json:"municipality"`
	State        string    `gorm:"size:2" json:"state"`
	TotalArea    float64   `json:"total_area"` // hectares
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	APIToken     string    `gorm:"size:100;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`

	Animals  []Animal         `gorm:"foreignKey:PropertyID" json:"-"`
	Scales   []Scale          `gorm:"foreignKey:PropertyID" json:"-"`
	Stations []WeatherStation `gorm:"foreignKey:PropertyID" json:"-"`
}
