package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"gorm.io/gorm"
)

type Farm struct {
	Property models.Property
	Animals  []models.Animal
	Trackers []models.LoRaDevice
	Scale    models.Scale
	Station  models.WeatherStation
}

// SeedFarm inserts a property and its equipment in one transaction. Codes are
// derived from the property id so repeated runs do not collide.
func SeedFarm(db *gorm.DB, name string, animals int) (*Farm, error) {
	farm := &Farm{
		Property: models.Property{
			Name:     name,
			State:    "SP",
			APIToken: strings.ReplaceAll(uuid.NewString(), "-", ""),
		},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&farm.Property).Error; err != nil {
			return err
		}
		pid := farm.Property.ID
		now := time.Now().UTC()

		for i := 1; i <= animals; i++ {
			deviceID := uuid.NewString()
			animal := models.Animal{
				Code:       fmt.Sprintf("P%d-BOV%03d", pid, i),
				Name:       fmt.Sprintf("Animal %d", i),
				Status:     models.AnimalActive,
				PropertyID: pid,
				DeviceID:   &deviceID,
			}
			if err := tx.Create(&animal).Error; err != nil {
				return err
			}
			tracker := models.LoRaDevice{
				DeviceID:    deviceID,
				Kind:        "ear tag",
				Status:      models.DeviceActive,
				ActivatedAt: now,
				PropertyID:  pid,
				AnimalID:    &animal.ID,
			}
			if err := tx.Create(&tracker).Error; err != nil {
				return err
			}
			farm.Animals = append(farm.Animals, animal)
			farm.Trackers = append(farm.Trackers, tracker)
		}

		farm.Scale = models.Scale{
			Code:       fmt.Sprintf("P%d-BALANCA001", pid),
			Name:       "Balanca do curral",
			Status:     models.DeviceActive,
			PropertyID: pid,
		}
		if err := tx.Create(&farm.Scale).Error; err != nil {
			return err
		}

		stationDevice := uuid.NewString()
		farm.Station = models.WeatherStation{
			Code:              fmt.Sprintf("P%d-EST001", pid),
			Name:              "Estacao Sede",
			Status:            models.DeviceActive,
			PropertyID:        pid,
			DeviceID:          &stationDevice,
			SensorTemperature: true,
			SensorHumidity:    true,
			SensorPressure:    true,
			SensorWind:        true,
			SensorRain:        true,
		}
		return tx.Create(&farm.Station).Error
	})
	if err != nil {
		return nil, err
	}
	return farm, nil
}
