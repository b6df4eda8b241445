package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
	"github.com/sirupsen/logrus"
)

// Service applies device reports. Each call is one transaction: authenticate,
// resolve the entity, update its live state, append one history record.
// The service keeps no state between calls.
type Service struct {
	store        *repository.Store
	logger       *logrus.Entry
	now          func() time.Time
	enforceScope bool
}

type Option func(*Service)

// WithClock replaces the server clock used for contact times and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPropertyScope makes entities owned by another property invisible to a token.
func WithPropertyScope(enforce bool) Option {
	return func(s *Service) { s.enforceScope = enforce }
}

func NewService(store *repository.Store, logger *logrus.Entry, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LocationResult struct {
	Animal string
}

type WeightResult struct {
	Animal string
	Weight float64
}

type WeatherResult struct {
	Station   string
	Timestamp time.Time
}

type UplinkResult struct {
	Device    string
	Timestamp time.Time
}

func (s *Service) Location(ctx context.Context, r LocationReport) (LocationResult, error) {
	loc, err := r.Validate()
	if err != nil {
		return LocationResult{}, err
	}
	if loc.Token == "" {
		return LocationResult{}, authErr()
	}

	var res LocationResult
	err = s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		prop, err := s.authenticate(tx, loc.Token)
		if err != nil {
			return err
		}
		animal, err := tx.AnimalByDevice(loc.DeviceID)
		if err != nil {
			return lookupErr(err, "device not found: %s", loc.DeviceID)
		}
		if !s.owns(prop, animal.PropertyID) {
			return notFoundErr("device not found: %s", loc.DeviceID)
		}

		if err := s.applyLocation(tx, animal, loc.DeviceID, loc.Latitude, loc.Longitude, loc.Battery, loc.Battery, s.now()); err != nil {
			return err
		}
		res.Animal = animal.Code
		return nil
	})
	if err != nil {
		return LocationResult{}, s.fail(ctx, "location", err)
	}

	logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"animal": res.Animal,
		"lat":    loc.Latitude,
		"lon":    loc.Longitude,
	}).Info("location report accepted")
	return res, nil
}

func (s *Service) Weight(ctx context.Context, r WeightReport) (WeightResult, error) {
	w, err := r.Validate()
	if err != nil {
		return WeightResult{}, err
	}
	if w.Token == "" {
		return WeightResult{}, authErr()
	}

	var res WeightResult
	err = s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		prop, err := s.authenticate(tx, w.Token)
		if err != nil {
			return err
		}
		scale, err := tx.ScaleByCode(w.ScaleCode)
		if err != nil {
			return lookupErr(err, "scale not found: %s", w.ScaleCode)
		}
		if !s.owns(prop, scale.PropertyID) {
			return notFoundErr("scale not found: %s", w.ScaleCode)
		}
		animal, err := tx.AnimalByCode(w.AnimalCode)
		if err != nil {
			return lookupErr(err, "animal not found: %s", w.AnimalCode)
		}
		if !s.owns(prop, animal.PropertyID) {
			return notFoundErr("animal not found: %s", w.AnimalCode)
		}

		now := s.now()
		scaleFields := map[string]any{"last_contact": now}
		if w.Battery != nil {
			scaleFields["battery"] = *w.Battery
		}
		if err := tx.UpdateScale(scale.ID, scaleFields); err != nil {
			return persistenceErr(err)
		}
		record := &models.WeightRecord{
			AnimalID:  animal.ID,
			ScaleID:   &scale.ID,
			Weight:    w.Weight,
			Method:    models.WeightAutomatic,
			Note:      fmt.Sprintf("automatic weighing via scale %s", scale.Name),
			WeighedAt: now,
		}
		if err := tx.Append(record); err != nil {
			return persistenceErr(err)
		}
		if err := tx.UpdateAnimal(animal.ID, map[string]any{"current_weight": w.Weight}); err != nil {
			return persistenceErr(err)
		}

		res = WeightResult{Animal: animal.Code, Weight: w.Weight}
		return nil
	})
	if err != nil {
		return WeightResult{}, s.fail(ctx, "weight", err)
	}

	logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"animal": res.Animal,
		"scale":  w.ScaleCode,
		"weight": res.Weight,
	}).Info("weight report accepted")
	return res, nil
}

func (s *Service) Weather(ctx context.Context, r WeatherReport) (WeatherResult, error) {
	w, err := r.Validate()
	if err != nil {
		return WeatherResult{}, err
	}
	if w.Token == "" {
		return WeatherResult{}, authErr()
	}

	var res WeatherResult
	err = s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		prop, err := s.authenticate(tx, w.Token)
		if err != nil {
			return err
		}
		station, err := tx.StationByCode(w.StationCode)
		if err != nil {
			return lookupErr(err, "station not found: %s", w.StationCode)
		}
		if !s.owns(prop, station.PropertyID) {
			return notFoundErr("station not found: %s", w.StationCode)
		}

		now := s.now()
		fields := map[string]any{"last_contact": now}
		if w.Battery != nil {
			fields["battery"] = *w.Battery
		}
		if err := tx.UpdateStation(station.ID, fields); err != nil {
			return persistenceErr(err)
		}
		reading := &models.WeatherReading{
			StationID:     station.ID,
			RecordedAt:    now,
			Temperature:   w.Temperature,
			Humidity:      w.Humidity,
			Pressure:      w.Pressure,
			WindSpeed:     w.WindSpeed,
			WindDirection: w.WindDirection,
			Precipitation: w.Precipitation,
			Battery:       w.Battery,
		}
		if err := tx.Append(reading); err != nil {
			return persistenceErr(err)
		}

		res = WeatherResult{Station: station.Code, Timestamp: now}
		return nil
	})
	if err != nil {
		return WeatherResult{}, s.fail(ctx, "weather", err)
	}

	logging.FromContext(ctx, s.logger).WithField("station", res.Station).Info("weather report accepted")
	return res, nil
}

// Uplink applies a network-server message for a registered tracker: contact
// time, battery and firmware always; position only when the tracker is
// fitted to an animal and the message carries one.
func (s *Service) Uplink(ctx context.Context, r UplinkReport) (UplinkResult, error) {
	u, err := r.Validate()
	if err != nil {
		return UplinkResult{}, err
	}
	if u.Token == "" {
		return UplinkResult{}, authErr()
	}

	var res UplinkResult
	err = s.store.WithinTx(ctx, func(tx *repository.Tx) error {
		prop, err := s.authenticate(tx, u.Token)
		if err != nil {
			return err
		}
		device, err := tx.LoRaDeviceByDeviceID(u.DeviceID)
		if err != nil {
			return lookupErr(err, "device not found: %s", u.DeviceID)
		}
		if !s.owns(prop, device.PropertyID) {
			return notFoundErr("device not found: %s", u.DeviceID)
		}

		now := s.now()
		observed := now
		if u.ObservedAt != nil {
			observed = *u.ObservedAt
		}

		fields := map[string]any{"last_contact": now}
		if u.Battery != nil {
			fields["battery"] = *u.Battery
		}
		if u.Firmware != "" {
			fields["firmware"] = u.Firmware
		}
		if err := tx.UpdateLoRaDevice(device.ID, fields); err != nil {
			return persistenceErr(err)
		}

		if animal := device.Animal; animal != nil {
			if u.HasPosition {
				recorded := u.Battery
				if recorded == nil {
					recorded = device.Battery
				}
				if err := s.applyLocation(tx, animal, u.DeviceID, u.Latitude, u.Longitude, u.Battery, recorded, observed); err != nil {
					return err
				}
			} else if u.Battery != nil {
				if err := tx.UpdateAnimal(animal.ID, map[string]any{"battery": *u.Battery}); err != nil {
					return persistenceErr(err)
				}
			}
		}

		res = UplinkResult{Device: device.DeviceID, Timestamp: now}
		return nil
	})
	if err != nil {
		return UplinkResult{}, s.fail(ctx, "uplink", err)
	}

	logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"device":   res.Device,
		"position": u.HasPosition,
	}).Info("uplink accepted")
	return res, nil
}

// applyLocation updates the animal's position and appends the matching history
// row. battery, when set, also becomes the animal's battery; recorded is the
// level stored on the history row.
func (s *Service) applyLocation(tx *repository.Tx, animal *models.Animal, deviceID string, lat, lon float64, battery, recorded *float64, at time.Time) error {
	fields := map[string]any{
		"last_latitude":  lat,
		"last_longitude": lon,
		"last_update":    at,
	}
	if battery != nil {
		fields["battery"] = *battery
	}
	if err := tx.UpdateAnimal(animal.ID, fields); err != nil {
		return persistenceErr(err)
	}

	history := &models.LocationHistory{
		AnimalID:   animal.ID,
		DeviceID:   deviceID,
		Latitude:   lat,
		Longitude:  lon,
		Battery:    recorded,
		RecordedAt: at,
	}
	if err := tx.Append(history); err != nil {
		return persistenceErr(err)
	}
	return nil
}

func (s *Service) authenticate(tx *repository.Tx, token string) (*models.Property, error) {
	prop, err := tx.PropertyByToken(token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, authErr()
	}
	if err != nil {
		return nil, persistenceErr(err)
	}
	return prop, nil
}

func (s *Service) owns(prop *models.Property, ownerID uint) bool {
	return !s.enforceScope || prop.ID == ownerID
}

func (s *Service) fail(ctx context.Context, kind string, err error) error {
	err = persistenceErr(err)
	if KindOf(err) == KindPersistence {
		logging.FromContext(ctx, s.logger).WithError(err).WithField("report", kind).Error("report rolled back")
	}
	return err
}

func lookupErr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFoundErr(format, args...)
	}
	return persistenceErr(err)
}
