package ingest

import (
	"context"
	"time"

	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
	"github.com/sirupsen/logrus"
)

// LiveFix is a position answered by a tracker after an on-demand request.
type LiveFix struct {
	Latitude  float64
	Longitude float64
	Battery   float64
}

// LiveReading is a station reading answered after an on-demand request.
// Sensors the station lacks are nil.
type LiveReading struct {
	Temperature     *float64
	Humidity        *float64
	Pressure        *float64
	WindSpeed       *float64
	WindDirection   *float64
	Precipitation   *float64
	SolarRadiation  *float64
	SoilMoisture    *float64
	SoilTemperature *float64
	Battery         float64
	SignalDBm       float64
}

type LiveReadingResult struct {
	Reading models.WeatherReading
	Alerts  []models.WeatherAlert
}

const (
	HighTemperatureLimit = 30.0 // °C
	HeavyRainLimit       = 10.0 // mm
)

// ApplyLiveLocation stores a fix obtained through the gateway for an animal of
// the given property. The query API is always property scoped.
func (s *Service) ApplyLiveLocation(ctx context.Context, propertyID, animalID uint, fix LiveFix) (*models.Animal, error) {
	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		return nil, validationErr("gateway returned an invalid position")
	}

	var animal *models.Animal
	err := s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		a, err := tx.AnimalByID(animalID)
		if err != nil || a.PropertyID != propertyID {
			return lookupErr(orNotFound(err), "animal not found: %d", animalID)
		}
		if a.DeviceID == nil {
			return validationErr("animal %s has no LoRa tracker", a.Code)
		}

		now := s.now()
		battery := fix.Battery
		if err := s.applyLocation(tx, a, *a.DeviceID, fix.Latitude, fix.Longitude, &battery, &battery, now); err != nil {
			return err
		}
		if err := tx.UpdateLoRaDeviceContact(*a.DeviceID, now); err != nil {
			return persistenceErr(err)
		}

		a.LastLatitude, a.LastLongitude, a.LastUpdate, a.Battery = &fix.Latitude, &fix.Longitude, &now, &battery
		animal = a
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "live-location", err)
	}

	logging.FromContext(ctx, s.logger).WithField("animal", animal.Code).Info("live location stored")
	return animal, nil
}

// ApplyLiveReading stores an on-demand station reading and raises an alert for
// each enabled sensor above its limit.
func (s *Service) ApplyLiveReading(ctx context.Context, propertyID, stationID uint, r LiveReading) (*LiveReadingResult, error) {
	var res LiveReadingResult
	err := s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		station, err := tx.StationByID(stationID)
		if err != nil || station.PropertyID != propertyID {
			return lookupErr(orNotFound(err), "station not found: %d", stationID)
		}
		if station.DeviceID == nil {
			return validationErr("station %s has no LoRa device", station.Code)
		}

		now := s.now()
		if err := tx.UpdateStation(station.ID, map[string]any{
			"last_contact": now,
			"battery":      r.Battery,
		}); err != nil {
			return persistenceErr(err)
		}

		battery, signal := r.Battery, r.SignalDBm
		res.Reading = models.WeatherReading{
			StationID:       station.ID,
			RecordedAt:      now,
			Temperature:     r.Temperature,
			Humidity:        r.Humidity,
			Pressure:        r.Pressure,
			WindSpeed:       r.WindSpeed,
			WindDirection:   r.WindDirection,
			Precipitation:   r.Precipitation,
			SolarRadiation:  r.SolarRadiation,
			SoilMoisture:    r.SoilMoisture,
			SoilTemperature: r.SoilTemperature,
			Battery:         &battery,
			SignalDBm:       &signal,
		}
		if err := tx.Append(&res.Reading); err != nil {
			return persistenceErr(err)
		}

		for _, alert := range thresholdAlerts(station, r, now) {
			if err := tx.Append(&alert); err != nil {
				return persistenceErr(err)
			}
			res.Alerts = append(res.Alerts, alert)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "live-reading", err)
	}

	logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"station": stationID,
		"alerts":  len(res.Alerts),
	}).Info("live reading stored")
	return &res, nil
}

func thresholdAlerts(station *models.WeatherStation, r LiveReading, at time.Time) []models.WeatherAlert {
	var alerts []models.WeatherAlert
	if station.SensorTemperature && r.Temperature != nil && *r.Temperature > HighTemperatureLimit {
		alerts = append(alerts, models.WeatherAlert{
			StationID:   station.ID,
			Kind:        "high_temperature",
			Description: "temperature above the configured limit",
			Level:       models.AlertAttention,
			Status:      "active",
			Measured:    *r.Temperature,
			Threshold:   HighTemperatureLimit,
			Unit:        "°C",
			RaisedAt:    at,
		})
	}
	if station.SensorRain && r.Precipitation != nil && *r.Precipitation > HeavyRainLimit {
		alerts = append(alerts, models.WeatherAlert{
			StationID:   station.ID,
			Kind:        "heavy_rain",
			Description: "precipitation above the configured limit",
			Level:       models.AlertWarning,
			Status:      "active",
			Measured:    *r.Precipitation,
			Threshold:   HeavyRainLimit,
			Unit:        "mm",
			RaisedAt:    at,
		})
	}
	return alerts
}

func orNotFound(err error) error {
	if err == nil {
		return repository.ErrNotFound
	}
	return err
}
