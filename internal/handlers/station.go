package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/lora"
	"github.com/ruralsys/farm-telemetry/internal/middleware"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
)

type StationHandler struct {
	store   *repository.Store
	service *ingest.Service
	gateway lora.Gateway
}

func NewStationHandler(store *repository.Store, service *ingest.Service, gateway lora.Gateway) *StationHandler {
	return &StationHandler{store: store, service: service, gateway: gateway}
}

// GET /api/v1/stations/:id/readings
func (h *StationHandler) Readings(c *gin.Context) {
	station, ok := h.station(c)
	if !ok {
		return
	}

	page := pageFrom(c)
	rows, total, err := h.store.Readings(c.Request.Context(), station.ID, page)
	if err != nil {
		InternalError(c, "Failed to fetch readings")
		return
	}
	SuccessWithMeta(c, rows, &Meta{Page: page.Page, PerPage: page.PerPage, Total: total})
}

// GET /api/v1/stations/:id/alerts
func (h *StationHandler) Alerts(c *gin.Context) {
	station, ok := h.station(c)
	if !ok {
		return
	}

	page := pageFrom(c)
	rows, total, err := h.store.Alerts(c.Request.Context(), station.ID, page)
	if err != nil {
		InternalError(c, "Failed to fetch alerts")
		return
	}
	SuccessWithMeta(c, rows, &Meta{Page: page.Page, PerPage: page.PerPage, Total: total})
}

type LiveReadingResponse struct {
	Reading models.WeatherReading `json:"reading"`
	Alerts  []models.WeatherAlert `json:"alerts"`
}

// POST /api/v1/stations/:id/request-reading
func (h *StationHandler) RequestReading(c *gin.Context) {
	station, ok := h.station(c)
	if !ok {
		return
	}
	if station.DeviceID == nil {
		BadRequest(c, "Station has no LoRa device")
		return
	}

	reading, err := h.gateway.RequestReading(c.Request.Context(), *station)
	if err != nil {
		Error(c, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "Could not obtain a reading")
		return
	}

	res, err := h.service.ApplyLiveReading(c.Request.Context(), middleware.GetPropertyID(c), station.ID, reading)
	if err != nil {
		QueryError(c, err)
		return
	}

	alerts := res.Alerts
	if alerts == nil {
		alerts = []models.WeatherAlert{}
	}
	Success(c, LiveReadingResponse{Reading: res.Reading, Alerts: alerts})
}

func (h *StationHandler) station(c *gin.Context) (*models.WeatherStation, bool) {
	id, ok := paramID(c, "Invalid station ID")
	if !ok {
		return nil, false
	}
	station, err := h.store.Station(c.Request.Context(), middleware.GetPropertyID(c), id)
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, "Station not found")
		return nil, false
	}
	if err != nil {
		InternalError(c, "Failed to fetch station")
		return nil, false
	}
	return station, true
}
