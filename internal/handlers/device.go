package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ruralsys/farm-telemetry/internal/middleware"
	"github.com/ruralsys/farm-telemetry/internal/models"
	"github.com/ruralsys/farm-telemetry/internal/repository"
)

const timeLayout = "2006-01-02 15:04:05"

type DeviceHandler struct {
	store *repository.Store
}

func NewDeviceHandler(store *repository.Store) *DeviceHandler {
	return &DeviceHandler{store: store}
}

type DeviceResponse struct {
	ID          uint     `json:"id"`
	DeviceID    string   `json:"device_id"`
	Kind        string   `json:"kind"`
	Status      string   `json:"status"`
	Battery     *float64 `json:"battery,omitempty"`
	Firmware    string   `json:"firmware,omitempty"`
	AnimalID    *uint    `json:"animal_id,omitempty"`
	LastContact string   `json:"last_contact,omitempty"`
	ActivatedAt string   `json:"activated_at"`
}

func toDeviceResponse(d models.LoRaDevice) DeviceResponse {
	resp := DeviceResponse{
		ID:          d.ID,
		DeviceID:    d.DeviceID,
		Kind:        d.Kind,
		Status:      string(d.Status),
		Battery:     d.Battery,
		Firmware:    d.Firmware,
		AnimalID:    d.AnimalID,
		ActivatedAt: d.ActivatedAt.Format(timeLayout),
	}
	if d.LastContact != nil {
		resp.LastContact = d.LastContact.Format(timeLayout)
	}
	return resp
}

// GET /api/v1/devices
func (h *DeviceHandler) List(c *gin.Context) {
	propertyID := middleware.GetPropertyID(c)

	devices, err := h.store.Devices(c.Request.Context(), propertyID)
	if err != nil {
		InternalError(c, "Failed to fetch devices")
		return
	}

	response := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		response[i] = toDeviceResponse(d)
	}

	Success(c, response)
}

// GET /api/v1/devices/:id
func (h *DeviceHandler) Get(c *gin.Context) {
	propertyID := middleware.GetPropertyID(c)
	id, ok := paramID(c, "Invalid device ID")
	if !ok {
		return
	}

	device, err := h.store.Device(c.Request.Context(), propertyID, id)
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, "Device not found")
		return
	}
	if err != nil {
		InternalError(c, "Failed to fetch device")
		return
	}

	Success(c, toDeviceResponse(*device))
}

func paramID(c *gin.Context, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, message)
		return 0, false
	}
	return uint(id), true
}

func pageFrom(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return repository.Page{Page: page, PerPage: perPage}.Normalize()
}
