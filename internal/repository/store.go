package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ruralsys/farm-telemetry/internal/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Store owns the database handle. Writes go through WithinTx so that every
// ingestion request is a single commit or a single rollback.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn inside one transaction bound to ctx. The transaction is
// committed only if fn returns nil and ctx is still live; any error, panic,
// timeout or client disconnect rolls it back.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		if err := fn(&Tx{db: gtx}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// Tx is the transaction boundary handed to ingestion code. It exposes only the
// lookups and writes the ingestion path needs.
type Tx struct {
	db *gorm.DB
}

// PropertyByToken resolves an API token to exactly one property. An empty token
// or a token shared by several properties matches nothing.
func (t *Tx) PropertyByToken(token string) (*models.Property, error) {
	return propertyByToken(t.db, token)
}

func (t *Tx) AnimalByDevice(deviceID string) (*models.Animal, error) {
	var a models.Animal
	if err := t.db.Where("device_id = ?", deviceID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *Tx) AnimalByCode(code string) (*models.Animal, error) {
	var a models.Animal
	if err := t.db.Where("code = ?", code).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *Tx) AnimalByID(id uint) (*models.Animal, error) {
	var a models.Animal
	if err := t.db.First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *Tx) ScaleByCode(code string) (*models.Scale, error) {
	var s models.Scale
	if err := t.db.Where("code = ?", code).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (t *Tx) StationByCode(code string) (*models.WeatherStation, error) {
	var s models.WeatherStation
	if err := t.db.Where("code = ?", code).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (t *Tx) StationByID(id uint) (*models.WeatherStation, error) {
	var s models.WeatherStation
	if err := t.db.First(&s, id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (t *Tx) LoRaDeviceByDeviceID(deviceID string) (*models.LoRaDevice, error) {
	var d models.LoRaDevice
	if err := t.db.Preload("Animal").Where("device_id = ?", deviceID).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// UpdateAnimal, UpdateScale, UpdateStation and UpdateLoRaDevice write
// live-state columns only. A missing row is ErrNotFound.

func (t *Tx) UpdateAnimal(id uint, fields map[string]any) error {
	return t.updateColumns(&models.Animal{}, id, fields)
}

func (t *Tx) UpdateScale(id uint, fields map[string]any) error {
	return t.updateColumns(&models.Scale{}, id, fields)
}

func (t *Tx) UpdateStation(id uint, fields map[string]any) error {
	return t.updateColumns(&models.WeatherStation{}, id, fields)
}

func (t *Tx) UpdateLoRaDevice(id uint, fields map[string]any) error {
	return t.updateColumns(&models.LoRaDevice{}, id, fields)
}

// UpdateLoRaDeviceContact touches the registry entry for deviceID if there is one.
func (t *Tx) UpdateLoRaDeviceContact(deviceID string, at time.Time) error {
	return t.db.Model(&models.LoRaDevice{}).Where("device_id = ?", deviceID).Update("last_contact", at).Error
}

func (t *Tx) updateColumns(model any, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := t.db.Model(model).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Append inserts a measurement record or alert. Records are never updated afterwards.
func (t *Tx) Append(record any) error {
	return t.db.Create(record).Error
}

func propertyByToken(db *gorm.DB, token string) (*models.Property, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var props []models.Property
	if err := db.Where("api_token = ?", token).Limit(2).Find(&props).Error; err != nil {
		return nil, err
	}
	if len(props) != 1 {
		return nil, ErrNotFound
	}
	return &props[0], nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
