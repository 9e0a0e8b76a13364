// Package config loads process configuration from the environment once at
// startup. The resulting value is passed explicitly into the stores and the
// service; there is no global configuration state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store driver names accepted in STORE_DRIVER.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Driver      string
	ServicePort int
	Environment string

	// Mongo settings (Driver == "mongo")
	MongoURI            string
	MongoDatabase       string
	HardwareCollection  string
	CheckoutsCollection string

	// SQLite settings (Driver == "sqlite")
	SQLitePath string
}

// Load reads a .env file if present (existing environment wins) and then
// builds the configuration from environment variables, validating the
// fields the selected store driver requires.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Driver:              getenv("STORE_DRIVER", DriverMongo),
		Environment:         getenv("ENVIRONMENT", "development"),
		MongoURI:            os.Getenv("MONGO_HOST"),
		MongoDatabase:       os.Getenv("MONGO_DATABASE"),
		HardwareCollection:  getenv("MONGO_COLLECTION_HARDWARE", "hardware_sets"),
		CheckoutsCollection: getenv("MONGO_COLLECTION_CHECKOUTS", "project_checkouts"),
		SQLitePath:          getenv("SQLITE_PATH", "toolcrib.db"),
	}

	port, err := strconv.Atoi(getenv("SERVICE_PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SERVICE_PORT must be an integer: %w", err)
	}
	cfg.ServicePort = port

	switch cfg.Driver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("config: environment variable MONGO_HOST is required but not set")
		}
		if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
			return Config{}, fmt.Errorf("config: MONGO_HOST must be a full MongoDB connection string (mongodb:// or mongodb+srv://)")
		}
		if cfg.MongoDatabase == "" {
			return Config{}, fmt.Errorf("config: environment variable MONGO_DATABASE is required but not set")
		}
	case DriverSQLite, DriverMemory:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.Driver)
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.ServicePort)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
