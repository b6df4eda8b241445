// Command seed creates a demo farm with trackers, a scale and a weather
// station, and prints the property's API token.
package main

import (
	"flag"
	"fmt"

	"github.com/ruralsys/farm-telemetry/internal/config"
	"github.com/ruralsys/farm-telemetry/internal/logging"
	"github.com/ruralsys/farm-telemetry/internal/repository"
)

func main() {
	name := flag.String("name", "Fazenda Demonstracao", "Property name")
	animals := flag.Int("animals", 5, "Number of tracked animals")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("Failed to load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	farm, err := SeedFarm(db, *name, *animals)
	if err != nil {
		logger.WithError(err).Fatal("Failed to seed database")
	}

	logger.WithFields(map[string]any{
		"property": farm.Property.ID,
		"animals":  len(farm.Animals),
		"scale":    farm.Scale.Code,
		"station":  farm.Station.Code,
	}).Info("Demo farm created")
	fmt.Println(farm.Property.APIToken)
}
