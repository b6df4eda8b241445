// Package lora talks to LoRa devices: on-demand requests through a gateway and
// uplinks forwarded by a network server over MQTT.
package lora

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/sirupsen/logrus"
)

var ErrNoAnswer = errors.New("device did not answer")

// Gateway sends on-demand requests to devices and waits for their answer.
type Gateway interface {
	RequestLocation(ctx context.Context, deviceID string) (ingest.LiveFix, error)
	RequestReading(ctx context.Context, station models.WeatherStation) (ingest.LiveReading, error)
}

// Simulator answers requests with plausible random values. It connects to the
// (imaginary) gateway on the first request.
type Simulator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	connected bool
	logger    *logrus.Entry

	// Centre of the simulated pasture.
	Latitude  float64
	Longitude float64
}

// NewSimulator seeds the generator with seed; the same seed yields the same answers.
func NewSimulator(seed int64, logger *logrus.Entry) *Simulator {
	return &Simulator{
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
		Latitude:  -23.55,
		Longitude: -46.65,
	}
}

func (s *Simulator) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.connected = false
		s.logger.Info("LoRa gateway disconnected")
	}
}

func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Simulator) connect() {
	if !s.connected {
		s.connected = true
		s.logger.Info("LoRa gateway connected")
	}
}

func (s *Simulator) RequestLocation(ctx context.Context, deviceID string) (ingest.LiveFix, error) {
	if err := ctx.Err(); err != nil {
		return ingest.LiveFix{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect()

	s.logger.WithField("device", deviceID).Debug("requesting location")
	return ingest.LiveFix{
		Latitude:  s.Latitude + s.uniform(-0.05, 0.05),
		Longitude: s.Longitude + s.uniform(-0.05, 0.05),
		Battery:   round1(s.uniform(50, 100)),
	}, nil
}

func (s *Simulator) RequestReading(ctx context.Context, station models.WeatherStation) (ingest.LiveReading, error) {
	if err := ctx.Err(); err != nil {
		return ingest.LiveReading{}, err
	}
	if station.DeviceID == nil {
		return ingest.LiveReading{}, ErrNoAnswer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect()

	s.logger.WithField("station", station.Code).Debug("requesting reading")

	battery := 90.0
	if station.Battery != nil {
		battery = *station.Battery
	}
	r := ingest.LiveReading{
		Battery:   round1(math.Max(0, math.Min(100, battery-s.uniform(0, 2)))),
		SignalDBm: round1(s.uniform(-100, -60)),
	}
	if station.SensorTemperature {
		r.Temperature = s.sample(15, 35)
	}
	if station.SensorHumidity {
		r.Humidity = s.sample(30, 90)
	}
	if station.SensorPressure {
		r.Pressure = s.sample(980, 1030)
	}
	if station.SensorWind {
		r.WindSpeed = s.sample(0, 25)
		r.WindDirection = s.sample(0, 360)
	}
	if station.SensorRain {
		r.Precipitation = s.sample(0, 15)
	}
	if station.SensorRadiation {
		r.SolarRadiation = s.sample(0, 1000)
	}
	if station.SensorSoil {
		r.SoilMoisture = s.sample(5, 40)
		r.SoilTemperature = s.sample(10, 25)
	}
	return r, nil
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Simulator) sample(lo, hi float64) *float64 {
	v := round1(s.uniform(lo, hi))
	return &v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
