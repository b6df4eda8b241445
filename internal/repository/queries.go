package repository

import (
	"context"

	"github.com/ruralsys/farm-telemetry/internal/models"
	"gorm.io/gorm"
)

// Page selects a window of a newest-first listing.
type Page struct {
	Page    int
	PerPage int
}

// Normalize applies the default window: page 1, 50 rows, at most 500.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 500 {
		p.PerPage = 50
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PerPage
}

// The queries below serve the read-only API. They are scoped by property so a
// token only ever sees its own farm.

func (s *Store) PropertyByToken(ctx context.Context, token string) (*models.Property, error) {
	return propertyByToken(s.db.WithContext(ctx), token)
}

func (s *Store) AnimalsWithPosition(ctx context.Context, propertyID uint) ([]models.Animal, error) {
	var animals []models.Animal
	err := s.db.WithContext(ctx).
		Where("property_id = ? AND status = ? AND last_latitude IS NOT NULL AND last_longitude IS NOT NULL",
			propertyID, models.AnimalActive).
		Order("code").
		Find(&animals).Error
	return animals, err
}

func (s *Store) Animal(ctx context.Context, propertyID, id uint) (*models.Animal, error) {
	var a models.Animal
	if err := s.db.WithContext(ctx).Where("id = ? AND property_id = ?", id, propertyID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) LocationHistory(ctx context.Context, animalID uint, page Page) ([]models.LocationHistory, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.LocationHistory{}).Where("animal_id = ?", animalID)
	return paginate[models.LocationHistory](q, "recorded_at DESC, id DESC", page)
}

func (s *Store) WeightHistory(ctx context.Context, animalID uint, page Page) ([]models.WeightRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.WeightRecord{}).Where("animal_id = ?", animalID)
	return paginate[models.WeightRecord](q, "weighed_at DESC, id DESC", page)
}

func (s *Store) Station(ctx context.Context, propertyID, id uint) (*models.WeatherStation, error) {
	var st models.WeatherStation
	if err := s.db.WithContext(ctx).Where("id = ? AND property_id = ?", id, propertyID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *Store) Readings(ctx context.Context, stationID uint, page Page) ([]models.WeatherReading, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.WeatherReading{}).Where("station_id = ?", stationID)
	return paginate[models.WeatherReading](q, "recorded_at DESC, id DESC", page)
}

func (s *Store) Alerts(ctx context.Context, stationID uint, page Page) ([]models.WeatherAlert, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.WeatherAlert{}).Where("station_id = ?", stationID)
	return paginate[models.WeatherAlert](q, "raised_at DESC, id DESC", page)
}

func (s *Store) Devices(ctx context.Context, propertyID uint) ([]models.LoRaDevice, error) {
	var devices []models.LoRaDevice
	err := s.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("device_id").Find(&devices).Error
	return devices, err
}

func (s *Store) Device(ctx context.Context, propertyID, id uint) (*models.LoRaDevice, error) {
	var d models.LoRaDevice
	if err := s.db.WithContext(ctx).Where("id = ? AND property_id = ?", id, propertyID).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func paginate[T any](q *gorm.DB, order string, page Page) ([]T, int64, error) {
	page = page.Normalize()
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []T
	err := q.Order(order).Offset(page.offset()).Limit(page.PerPage).Find(&rows).Error
	return rows, total, err
}
