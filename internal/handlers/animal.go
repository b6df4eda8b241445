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

type AnimalHandler struct {
	store   *repository.Store
	service *ingest.Service
	gateway lora.Gateway
}

func NewAnimalHandler(store *repository.Store, service *ingest.Service, gateway lora.Gateway) *AnimalHandler {
	return &AnimalHandler{store: store, service: service, gateway: gateway}
}

type PositionResponse struct {
	ID         uint     `json:"id"`
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Battery    *float64 `json:"battery,omitempty"`
	LastUpdate string   `json:"last_update,omitempty"`
}

func toPosition(a models.Animal) PositionResponse {
	p := PositionResponse{ID: a.ID, Code: a.Code, Name: a.Name, Battery: a.Battery}
	if a.LastLatitude != nil && a.LastLongitude != nil {
		p.Latitude, p.Longitude = *a.LastLatitude, *a.LastLongitude
	}
	if a.LastUpdate != nil {
		p.LastUpdate = a.LastUpdate.Format(timeLayout)
	}
	return p
}

// GET /api/v1/animals/positions
func (h *AnimalHandler) Positions(c *gin.Context) {
	animals, err := h.store.AnimalsWithPosition(c.Request.Context(), middleware.GetPropertyID(c))
	if err != nil {
		InternalError(c, "Failed to fetch positions")
		return
	}

	response := make([]PositionResponse, len(animals))
	for i, a := range animals {
		response[i] = toPosition(a)
	}
	Success(c, response)
}

// GET /api/v1/animals/:id/locations
func (h *AnimalHandler) Locations(c *gin.Context) {
	animal, ok := h.animal(c)
	if !ok {
		return
	}

	page := pageFrom(c)
	rows, total, err := h.store.LocationHistory(c.Request.Context(), animal.ID, page)
	if err != nil {
		InternalError(c, "Failed to fetch location history")
		return
	}
	SuccessWithMeta(c, rows, &Meta{Page: page.Page, PerPage: page.PerPage, Total: total})
}

// GET /api/v1/animals/:id/weights
func (h *AnimalHandler) Weights(c *gin.Context) {
	animal, ok := h.animal(c)
	if !ok {
		return
	}

	page := pageFrom(c)
	rows, total, err := h.store.WeightHistory(c.Request.Context(), animal.ID, page)
	if err != nil {
		InternalError(c, "Failed to fetch weight history")
		return
	}
	SuccessWithMeta(c, rows, &Meta{Page: page.Page, PerPage: page.PerPage, Total: total})
}

// POST /api/v1/animals/:id/request-location
// Asks the tracker for a fresh fix through the gateway and stores it.
func (h *AnimalHandler) RequestLocation(c *gin.Context) {
	animal, ok := h.animal(c)
	if !ok {
		return
	}
	if animal.DeviceID == nil {
		BadRequest(c, "Animal has no LoRa tracker")
		return
	}

	fix, err := h.gateway.RequestLocation(c.Request.Context(), *animal.DeviceID)
	if err != nil {
		Error(c, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "Could not obtain the current location")
		return
	}

	updated, err := h.service.ApplyLiveLocation(c.Request.Context(), middleware.GetPropertyID(c), animal.ID, fix)
	if err != nil {
		QueryError(c, err)
		return
	}
	Success(c, toPosition(*updated))
}

func (h *AnimalHandler) animal(c *gin.Context) (*models.Animal, bool) {
	id, ok := paramID(c, "Invalid animal ID")
	if !ok {
		return nil, false
	}
	animal, err := h.store.Animal(c.Request.Context(), middleware.GetPropertyID(c), id)
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, "Animal not found")
		return nil, false
	}
	if err != nil {
		InternalError(c, "Failed to fetch animal")
		return nil, false
	}
	return animal, true
}
