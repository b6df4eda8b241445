package ingest

import (
	"net/url"
	"strings"
	"time"
)

// LocationReport is a position fix from an animal's LoRa tracker.
type LocationReport struct {
	ID    Value `json:"id"`
	Lat   Value `json:"lat"`
	Lon   Value `json:"lon"`
	Bat   Value `json:"bat"`
	Token Value `json:"tkn"`
}

func LocationFromQuery(q url.Values) LocationReport {
	return LocationReport{
		ID:    queryValue(q, "id"),
		Lat:   queryValue(q, "lat"),
		Lon:   queryValue(q, "lon"),
		Bat:   queryValue(q, "bat"),
		Token: queryValue(q, "tkn"),
	}
}

type Location struct {
	DeviceID  string
	Latitude  float64
	Longitude float64
	Battery   *float64
	Token     string
}

func (r LocationReport) Validate() (Location, error) {
	if err := require(field{"id", r.ID}, field{"lat", r.Lat}, field{"lon", r.Lon}); err != nil {
		return Location{}, err
	}
	loc := Location{
		DeviceID: strings.TrimSpace(r.ID.String()),
		Token:    r.Token.String(),
	}
	var err error
	if loc.Latitude, err = number("lat", r.Lat, -90, 90); err != nil {
		return Location{}, err
	}
	if loc.Longitude, err = number("lon", r.Lon, -180, 180); err != nil {
		return Location{}, err
	}
	if loc.Battery, err = optional("bat", r.Bat, 0, 100); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// WeightReport is an automatic weighing posted by a digital scale.
type WeightReport struct {
	ScaleID  Value `json:"balanca_id"`
	AnimalID Value `json:"animal_id"`
	Weight   Value `json:"peso"`
	Bat      Value `json:"bat"`
	Token    Value `json:"tkn"`
}

func WeightFromQuery(q url.Values) WeightReport {
	return WeightReport{
		ScaleID:  queryValue(q, "balanca_id"),
		AnimalID: queryValue(q, "animal_id"),
		Weight:   queryValue(q, "peso"),
		Bat:      queryValue(q, "bat"),
		Token:    queryValue(q, "tkn"),
	}
}

type Weighing struct {
	ScaleCode  string
	AnimalCode string
	Weight     float64
	Battery    *float64
	Token      string
}

func (r WeightReport) Validate() (Weighing, error) {
	if err := require(field{"balanca_id", r.ScaleID}, field{"animal_id", r.AnimalID}, field{"peso", r.Weight}); err != nil {
		return Weighing{}, err
	}
	w := Weighing{
		ScaleCode:  strings.TrimSpace(r.ScaleID.String()),
		AnimalCode: strings.TrimSpace(r.AnimalID.String()),
		Token:      r.Token.String(),
	}
	var err error
	if w.Weight, err = r.Weight.Float(); err != nil {
		return Weighing{}, validationErr("invalid value for peso: %v", err)
	}
	if w.Weight <= 0 {
		return Weighing{}, validationErr("peso must be greater than zero")
	}
	if w.Battery, err = optional("bat", r.Bat, 0, 100); err != nil {
		return Weighing{}, err
	}
	return w, nil
}

// WeatherReport is a station reading. Every sensor field is optional; sensors
// a station lacks are simply not sent.
type WeatherReport struct {
	StationID Value `json:"estacao_id"`
	Temp      Value `json:"temp"`
	Humidity  Value `json:"umid"`
	Pressure  Value `json:"press"`
	Precip    Value `json:"precip"`
	Wind      Value `json:"vento"`
	WindDir   Value `json:"dir_vento"`
	Bat       Value `json:"bat"`
	Token     Value `json:"tkn"`
}

func WeatherFromQuery(q url.Values) WeatherReport {
	return WeatherReport{
		StationID: queryValue(q, "estacao_id"),
		Temp:      queryValue(q, "temp"),
		Humidity:  queryValue(q, "umid"),
		Pressure:  queryValue(q, "press"),
		Precip:    queryValue(q, "precip"),
		Wind:      queryValue(q, "vento"),
		WindDir:   queryValue(q, "dir_vento"),
		Bat:       queryValue(q, "bat"),
		Token:     queryValue(q, "tkn"),
	}
}

type Weather struct {
	StationCode   string
	Temperature   *float64
	Humidity      *float64
	Pressure      *float64
	Precipitation *float64
	WindSpeed     *float64
	WindDirection *float64
	Battery       *float64
	Token         string
}

func (r WeatherReport) Validate() (Weather, error) {
	if err := require(field{"estacao_id", r.StationID}); err != nil {
		return Weather{}, err
	}
	w := Weather{
		StationCode: strings.TrimSpace(r.StationID.String()),
		Token:       r.Token.String(),
	}
	var err error
	if w.Temperature, err = optional("temp", r.Temp, -90, 70); err != nil {
		return Weather{}, err
	}
	if w.Humidity, err = optional("umid", r.Humidity, 0, 100); err != nil {
		return Weather{}, err
	}
	if w.Pressure, err = optional("press", r.Pressure, 0, 2000); err != nil {
		return Weather{}, err
	}
	if w.Precipitation, err = optional("precip", r.Precip, 0, 2000); err != nil {
		return Weather{}, err
	}
	if w.WindSpeed, err = optional("vento", r.Wind, 0, 500); err != nil {
		return Weather{}, err
	}
	if w.WindDirection, err = optional("dir_vento", r.WindDir, 0, 360); err != nil {
		return Weather{}, err
	}
	if w.Battery, err = optional("bat", r.Bat, 0, 100); err != nil {
		return Weather{}, err
	}
	return w, nil
}

// UplinkReport is the generic message a LoRa network server forwards for a
// registered tracker. Position is optional but latitude and longitude travel
// together.
type UplinkReport struct {
	DeviceID  Value `json:"device_id"`
	Lat       Value `json:"latitude"`
	Lon       Value `json:"longitude"`
	Battery   Value `json:"bateria"`
	Firmware  Value `json:"firmware"`
	Timestamp Value `json:"timestamp"`
	Token     Value `json:"-"`
}

type Uplink struct {
	DeviceID    string
	HasPosition bool
	Latitude    float64
	Longitude   float64
	Battery     *float64
	Firmware    string
	ObservedAt  *time.Time
	Token       string
}

func (r UplinkReport) Validate() (Uplink, error) {
	if err := require(field{"device_id", r.DeviceID}); err != nil {
		return Uplink{}, err
	}
	u := Uplink{
		DeviceID: strings.TrimSpace(r.DeviceID.String()),
		Firmware: strings.TrimSpace(r.Firmware.String()),
		Token:    r.Token.String(),
	}
	if len(u.Firmware) > 20 {
		return Uplink{}, validationErr("firmware must be at most 20 characters")
	}

	switch {
	case r.Lat.Present() && r.Lon.Present():
		var err error
		if u.Latitude, err = number("latitude", r.Lat, -90, 90); err != nil {
			return Uplink{}, err
		}
		if u.Longitude, err = number("longitude", r.Lon, -180, 180); err != nil {
			return Uplink{}, err
		}
		u.HasPosition = true
	case r.Lat.Present() || r.Lon.Present():
		return Uplink{}, validationErr("latitude and longitude must be sent together")
	}

	var err error
	if u.Battery, err = optional("bateria", r.Battery, 0, 100); err != nil {
		return Uplink{}, err
	}
	if r.Timestamp.Present() {
		ts, err := parseTimestamp(r.Timestamp.String())
		if err != nil {
			return Uplink{}, validationErr("invalid value for timestamp: %q", r.Timestamp.String())
		}
		u.ObservedAt = &ts
	}
	return u, nil
}

type field struct {
	name  string
	value Value
}

func require(fields ...field) error {
	for _, f := range fields {
		if !f.value.Present() {
			return validationErr("missing required field: %s", f.name)
		}
	}
	return nil
}

func number(name string, v Value, lo, hi float64) (float64, error) {
	f, err := v.Float()
	if err != nil {
		return 0, validationErr("invalid value for %s: %v", name, err)
	}
	if f < lo || f > hi {
		return 0, validationErr("%s out of range [%g, %g]: %g", name, lo, hi, f)
	}
	return f, nil
}

func optional(name string, v Value, lo, hi float64) (*float64, error) {
	if !v.Present() {
		return nil, nil
	}
	f, err := number(name, v, lo, hi)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range timestampLayouts {
		var ts time.Time
		if ts, err = time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, err
}
