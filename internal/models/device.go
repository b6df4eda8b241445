package models

import (
	"time"
)

type DeviceStatus string

const (
	DeviceActive      DeviceStatus = "active"
	DeviceInactive    DeviceStatus = "inactive"
	DeviceMaintenance DeviceStatus = "maintenance"
)

// LoRaDevice is the tracker registry entry; a device may be fitted to an animal.
type LoRaDevice struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	DeviceID    string       `gorm:"size:36;uniqueIndex;not null" json:"device_id"`
	Kind        string       `gorm:"size:50" json:"kind"` // ear tag, collar...
	Status      DeviceStatus `gorm:"size:20;default:active" json:"status"`
	Battery     *float64     `json:"battery,omitempty"`
	Firmware    string       `gorm:"size:20" json:"firmware"`
	LastContact *time.Time   `json:"last_contact,omitempty"`
	ActivatedAt time.Time    `json:"activated_at"`
	PropertyID  uint         `gorm:"index;not null" json:"property_id"`
	AnimalID    *uint        `gorm:"index" json:"animal_id,omitempty"`

	Animal *Animal `gorm:"foreignKey:AnimalID" json:"-"`
}

// Scale is a digital scale posting automatic weighings.
type Scale struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Code         string       `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Model        string       `gorm:"size:100" json:"model"`
	Manufacturer string       `gorm:"size:100" json:"manufacturer"`
	Location     string       `gorm:"size:200" json:"location"`
	Status       DeviceStatus `gorm:"size:20;default:active" json:"status"`
	DeviceID     *string      `gorm:"size:36;uniqueIndex" json:"device_id,omitempty"`
	Battery      *float64     `json:"battery,omitempty"`
	LastContact  *time.Time   `json:"last_contact,omitempty"`
	Precision    float64      `gorm:"default:0.5" json:"precision"` // kg
	MaxCapacity  *float64     `json:"max_capacity,omitempty"`       // kg
	PropertyID   uint         `gorm:"index;not null" json:"property_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

// WeatherStation is a sensor station; the Sensor* flags say which readings it produces.
type WeatherStation struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	Code            string       `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name            string       `gorm:"size:100;not null" json:"name"`
	Latitude        *float64     `json:"latitude,omitempty"`
	Longitude       *float64     `json:"longitude,omitempty"`
	Altitude        *float64     `json:"altitude,omitempty"` // m
	Status          DeviceStatus `gorm:"size:20;default:active" json:"status"`
	ReadingInterval int          `gorm:"default:15" json:"reading_interval"` // minutes

	SensorTemperature bool `gorm:"default:true" json:"sensor_temperature"`
	SensorHumidity    bool `gorm:"default:true" json:"sensor_humidity"`
	SensorPressure    bool `gorm:"default:true" json:"sensor_pressure"`
	SensorWind        bool `gorm:"default:true" json:"sensor_wind"`
	SensorRain        bool `gorm:"default:true" json:"sensor_rain"`
	SensorRadiation   bool `gorm:"default:false" json:"sensor_radiation"`
	SensorSoil        bool `gorm:"default:false" json:"sensor_soil"`

	DeviceID    *string    `gorm:"size:36;uniqueIndex" json:"device_id,omitempty"`
	Firmware    string     `gorm:"size:20" json:"firmware"`
	Battery     *float64   `json:"battery,omitempty"`
	LastContact *time.Time `json:"last_contact,omitempty"`
	PropertyID  uint       `gorm:"index;not null" json:"property_id"`
	CreatedAt   time.Time  `json:"created_at"`
}
