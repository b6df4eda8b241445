// Command device-sim plays a field device: it posts location, weight or
// weather reports to a running server at a fixed interval.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruralsys/farm-telemetry/internal/logging"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	token := flag.String("token", "", "Property API token")
	kind := flag.String("kind", "location", "Report kind: location, weight or weather")
	method := flag.String("method", "POST", "POST sends JSON, GET sends a query string")
	target := flag.String("target", "BRINCO123", "Device id (location), animal code (weight) or station code (weather)")
	scale := flag.String("scale", "BALANCA001", "Scale code for weight reports")
	count := flag.Int("count", 10, "Number of reports to send, 0 for no limit")
	interval := flag.Duration("interval", 5*time.Second, "Interval between reports")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	logger := logging.New("info", "text").WithField("kind", *kind)

	sim := &Simulator{
		Client: NewClient(*baseURL),
		Kind:   *kind,
		Method: *method,
		Token:  *token,
		Target: *target,
		Scale:  *scale,
		rng:    rand.New(rand.NewSource(*seed)),
	}
	if err := sim.Check(); err != nil {
		logger.WithError(err).Fatal("invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for sent := 0; *count == 0 || sent < *count; sent++ {
		status, body, err := sim.SendOne(ctx)
		if err != nil {
			logger.WithError(err).Error("send failed")
		} else {
			logger.WithField("status", status).Info(body)
		}

		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal")
			return
		case <-ticker.C:
		}
	}
}
