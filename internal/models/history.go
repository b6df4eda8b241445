package models

import (
	"time"
)

// Measurement records below are append-only. Nothing updates or deletes them.

type LocationHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AnimalID   uint      `gorm:"index;not null" json:"animal_id"`
	DeviceID   string    `gorm:"size:36;not null" json:"device_id"`
	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	Battery    *float64  `json:"battery,omitempty"`
	RecordedAt time.Time `gorm:"index;not null" json:"recorded_at"`
}

type WeightMethod string

const (
	WeightManual    WeightMethod = "manual"
	WeightAutomatic WeightMethod = "automatic"
)

type WeightRecord struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	AnimalID  uint         `gorm:"index;not null" json:"animal_id"`
	ScaleID   *uint        `gorm:"index" json:"scale_id,omitempty"`
	Weight    float64      `gorm:"not null" json:"weight"` // kg
	Method    WeightMethod `gorm:"size:20;default:manual" json:"method"`
	Note      string       `gorm:"type:text" json:"note"`
	WeighedAt time.Time    `gorm:"index;not null" json:"weighed_at"`
}

type WeatherReading struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StationID       uint      `gorm:"index;not null" json:"station_id"`
	RecordedAt      time.Time `gorm:"index;not null" json:"recorded_at"`
	Temperature     *float64  `json:"temperature"`     // °C
	Humidity        *float64  `json:"humidity"`        // %
	Pressure        *float64  `json:"pressure"`        // hPa
	WindSpeed       *float64  `json:"wind_speed"`      // km/h
	WindDirection   *float64  `json:"wind_direction"`  // degrees
	Precipitation   *float64  `json:"precipitation"`   // mm
	SolarRadiation  *float64  `json:"solar_radiation"` // W/m²
	SoilMoisture    *float64  `json:"soil_moisture"`
	SoilTemperature *float64  `json:"soil_temperature"`
	Battery         *float64  `json:"battery"`
	SignalDBm       *float64  `json:"signal_dbm"`
}

type AlertLevel string

const (
	AlertInfo      AlertLevel = "info"
	AlertAttention AlertLevel = "attention"
	AlertWarning   AlertLevel = "warning"
	AlertEmergency AlertLevel = "emergency"
)

type WeatherAlert struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	StationID   uint       `gorm:"index;not null" json:"station_id"`
	Kind        string     `gorm:"size:50;not null" json:"kind"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Level       AlertLevel `gorm:"size:20;not null" json:"level"`
	Status      string     `gorm:"size:20;default:active" json:"status"`
	Measured    float64    `json:"measured"`
	Threshold   float64    `json:"threshold"`
	Unit        string     `gorm:"size:10" json:"unit"`
	RaisedAt    time.Time  `gorm:"not null" json:"raised_at"`
}
