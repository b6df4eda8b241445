package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruralsys/farm-telemetry/internal/ingest"
	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/lora"
	"github.com/ruralsys/farm-telemetry/internal/metrics"
	"github.com/ruralsys/farm-telemetry/internal/middleware"
	"github.com/ruralsys/farm-telemetry/internal/repository"
	"github.com/sirupsen/logrus"
)

type RouterDeps struct {
	Store          *repository.Store
	Service        *ingest.Service
	Gateway        lora.Gateway
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Logger         *logrus.Entry
	RequestTimeout time.Duration
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(d.Logger))
	r.Use(logging.RequestLogger(d.Logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", middleware.TokenHeader, middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(middleware.Timeout(d.RequestTimeout))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	ingestHandler := NewIngestHandler(d.Service, d.Metrics)
	animalHandler := NewAnimalHandler(d.Store, d.Service, d.Gateway)
	stationHandler := NewStationHandler(d.Store, d.Service, d.Gateway)
	deviceHandler := NewDeviceHandler(d.Store)

	// Device ingestion (token in the payload)
	api := r.Group("/api")
	{
		api.POST("/lora/localizacao", ingestHandler.LocationJSON)
		api.GET("/lora/localizacao/get", ingestHandler.LocationQuery)
		api.POST("/balanca/pesagem", ingestHandler.WeightJSON)
		api.GET("/balanca/pesagem/get", ingestHandler.WeightQuery)
		api.POST("/estacao/leitura", ingestHandler.Weather)
		api.GET("/estacao/leitura", ingestHandler.Weather)
		api.POST("/lora/data", ingestHandler.Uplink)
	}

	// Query API
	v1 := r.Group("/api/v1")
	v1.Use(middleware.PropertyAuth(d.Store))
	{
		animals := v1.Group("/animals")
		{
			animals.GET("/positions", animalHandler.Positions)
			animals.GET("/:id/locations", animalHandler.Locations)
			animals.GET("/:id/weights", animalHandler.Weights)
			animals.POST("/:id/request-location", animalHandler.RequestLocation)
		}

		stations := v1.Group("/stations")
		{
			stations.GET("/:id/readings", stationHandler.Readings)
			stations.GET("/:id/alerts", stationHandler.Alerts)
			stations.POST("/:id/request-reading", stationHandler.RequestReading)
		}

		devices := v1.Group("/devices")
		{
			devices.GET("", deviceHandler.List)
			devices.GET("/:id", deviceHandler.Get)
		}
	}

	return r
}
