package models

import (
	"time"
)

type AnimalStatus string

const (
	AnimalActive AnimalStatus = "active"
	AnimalSold   AnimalStatus = "sold"
	AnimalDead   AnimalStatus = "dead"
)

// Animal is a trackable entity reporting through a LoRa ear tag or collar.
type Animal struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Code          string       `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name          string       `gorm:"size:100" json:"name"`
	Sex           string       `gorm:"size:1" json:"sex"`
	CurrentWeight *float64     `json:"current_weight,omitempty"` // kg
	Status        AnimalStatus `gorm:"size:20;default:active" json:"status"`
	Color         string       `gorm:"size:7;default:#000000" json:"color"`
	PropertyID    uint         `gorm:"index;not null" json:"property_id"`

	// LoRa tracker live state
	DeviceID      *string    `gorm:"size:36;uniqueIndex" json:"device_id,omitempty"`
	LastLatitude  *float64   `json:"last_latitude,omitempty"`
	LastLongitude *float64   `json:"last_longitude,omitempty"`
	LastUpdate    *time.Time `json:"last_update,omitempty"`
	Battery       *float64   `json:"battery,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Property Property `gorm:"foreignKey:PropertyID" json:"-"`
}

func (a *Animal) HasPosition() bool {
	return a.LastLatitude != nil && a.LastLongitude != nil
}
