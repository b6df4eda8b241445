// Package repotest provides throwaway databases and fixtures for tests.
package repotest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	Token      = "token-secreto-api"
	OtherToken = "token-outra-fazenda"
)

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the shared in-memory database alive and serializes access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is the seeded farm used across package tests.
type Fixture struct {
	Property      models.Property
	OtherProperty models.Property
	Animal        models.Animal // code and device id BRINCO123
	Heifer        models.Animal // code BOV004, no tracker
	Foreign       models.Animal // belongs to OtherProperty
	Scale         models.Scale
	Station       models.WeatherStation
	Tracker       models.LoRaDevice // fitted to Animal
}

func ptr[T any](v T) *T { return &v }

// Seed inserts a farm with one tracked animal, one untracked animal, a scale,
// a weather station and a tracker, plus a second property owning one animal.
func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{
		Property:      models.Property{Name: "Fazenda Modelo", State: "SP", APIToken: Token},
		OtherProperty: models.Property{Name: "Sitio Vizinho", State: "MG", APIToken: OtherToken},
	}
	must(t, db.Create(&f.Property).Error)
	must(t, db.Create(&f.OtherProperty).Error)

	f.Animal = models.Animal{
		Code:       "BRINCO123",
		Name:       "Mimosa",
		Status:     models.AnimalActive,
		PropertyID: f.Property.ID,
		DeviceID:   ptr("BRINCO123"),
		Battery:    ptr(80.0),
	}
	f.Heifer = models.Animal{Code: "BOV004", Status: models.AnimalActive, PropertyID: f.Property.ID}
	f.Foreign = models.Animal{
		Code:       "VIZ001",
		Status:     models.AnimalActive,
		PropertyID: f.OtherProperty.ID,
		DeviceID:   ptr("VIZ-TAG-1"),
	}
	must(t, db.Create(&f.Animal).Error)
	must(t, db.Create(&f.Heifer).Error)
	must(t, db.Create(&f.Foreign).Error)

	f.Scale = models.Scale{Code: "BALANCA001", Name: "Balanca do curral", Status: models.DeviceActive, PropertyID: f.Property.ID}
	must(t, db.Create(&f.Scale).Error)

	f.Station = models.WeatherStation{
		Code:              "EST001",
		Name:              "Estacao Sede",
		Status:            models.DeviceActive,
		PropertyID:        f.Property.ID,
		DeviceID:          ptr("EST001-LORA"),
		SensorTemperature: true,
		SensorHumidity:    true,
		SensorPressure:    true,
		SensorWind:        true,
		SensorRain:        true,
	}
	must(t, db.Create(&f.Station).Error)

	f.Tracker = models.LoRaDevice{
		DeviceID:    "BRINCO123",
		Kind:        "ear tag",
		Status:      models.DeviceActive,
		ActivatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PropertyID:  f.Property.ID,
		AnimalID:    &f.Animal.ID,
	}
	must(t, db.Create(&f.Tracker).Error)

	return f
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}
