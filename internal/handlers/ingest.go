package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/metrics"
	"github.com/ruralsys/farm-telemetry/internal/middleware"
)

// IngestHandler serves the device-facing endpoints. Paths and field names are
// those burned into the field firmware.
type IngestHandler struct {
	service *ingest.Service
	metrics *metrics.Metrics
}

func NewIngestHandler(service *ingest.Service, m *metrics.Metrics) *IngestHandler {
	return &IngestHandler{service: service, metrics: m}
}

// POST /api/lora/localizacao
func (h *IngestHandler) LocationJSON(c *gin.Context) {
	var report ingest.LocationReport
	if !h.bind(c, "location", deviceErrorKey, &report) {
		return
	}
	h.location(c, report)
}

// GET /api/lora/localizacao/get
func (h *IngestHandler) LocationQuery(c *gin.Context) {
	h.location(c, ingest.LocationFromQuery(c.Request.URL.Query()))
}

func (h *IngestHandler) location(c *gin.Context, report ingest.LocationReport) {
	start := time.Now()
	res, err := h.service.Location(c.Request.Context(), report)
	h.metrics.Observe("location", err, time.Since(start))
	if err != nil {
		ingestError(c, err)
		return
	}
	ack(c, gin.H{"animal": res.Animal})
}

// POST /api/balanca/pesagem
func (h *IngestHandler) WeightJSON(c *gin.Context) {
	var report ingest.WeightReport
	if !h.bind(c, "weight", deviceErrorKey, &report) {
		return
	}
	h.weight(c, report)
}

// GET /api/balanca/pesagem/get
func (h *IngestHandler) WeightQuery(c *gin.Context) {
	h.weight(c, ingest.WeightFromQuery(c.Request.URL.Query()))
}

func (h *IngestHandler) weight(c *gin.Context, report ingest.WeightReport) {
	start := time.Now()
	res, err := h.service.Weight(c.Request.Context(), report)
	h.metrics.Observe("weight", err, time.Since(start))
	if err != nil {
		ingestError(c, err)
		return
	}
	ack(c, gin.H{"animal": res.Animal, "peso": res.Weight})
}

// POST|GET /api/estacao/leitura
func (h *IngestHandler) Weather(c *gin.Context) {
	var report ingest.WeatherReport
	if c.Request.Method == "GET" {
		report = ingest.WeatherFromQuery(c.Request.URL.Query())
	} else if !h.bind(c, "weather", deviceErrorKey, &report) {
		return
	}

	start := time.Now()
	res, err := h.service.Weather(c.Request.Context(), report)
	h.metrics.Observe("weather", err, time.Since(start))
	if err != nil {
		ingestError(c, err)
		return
	}
	ack(c, gin.H{"estacao": res.Station, "timestamp": res.Timestamp.Format(time.RFC3339)})
}

// POST /api/lora/data
// Generic uplink forwarded by a LoRa network server; the token travels in the
// X-API-Token header. Network servers expect English status and error keys.
func (h *IngestHandler) Uplink(c *gin.Context) {
	var report ingest.UplinkReport
	if !h.bind(c, "uplink", uplinkErrorKey, &report) {
		return
	}
	report.Token = ingest.Text(c.GetHeader(middleware.TokenHeader))

	start := time.Now()
	res, err := h.service.Uplink(c.Request.Context(), report)
	h.metrics.Observe("uplink", err, time.Since(start))
	if err != nil {
		writeIngestError(c, uplinkErrorKey, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "uplink processed for " + res.Device,
		"timestamp": res.Timestamp.Format(time.RFC3339),
	})
}

// bind decodes the JSON body into report. A body that does not decode is
// answered with 400 under errKey and counted as a validation failure of kind.
func (h *IngestHandler) bind(c *gin.Context, kind, errKey string, report any) bool {
	start := time.Now()
	if err := c.ShouldBindJSON(report); err != nil {
		h.metrics.Observe(kind, &ingest.Error{Kind: ingest.KindValidation, Message: "invalid JSON body", Err: err}, time.Since(start))
		c.JSON(ingestStatus(ingest.KindValidation), gin.H{errKey: "invalid JSON body"})
		return false
	}
	return true
}
