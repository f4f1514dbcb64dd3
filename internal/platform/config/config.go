// Package config centralizes runtime tuning for the station server.
// Cadences are configuration, not code constants: everything here can be
// overridden through the environment (optionally via a .env file).
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the tuned parameters for a server instance.
type Config struct {
	// HTTP
	Addr string

	// Persistence
	DBPath string

	// Simulation cadences (sim seconds unless noted)
	TickDt     float64 // fixed simulation step
	AutosaveDt float64 // autosave period, measured in sim time
	CatchupMax float64 // hard cap on offline seconds replayed at boot

	// Reserved AI-decision work per catch-up run, independent of
	// elapsed offline time.
	CatchupDecisionBudget int

	// Debug enables the /api/debug endpoints. Never ship with this on.
	Debug bool
}

// Default returns sensible defaults for production.
func Default() *Config {
	return &Config{
		Addr:                  ":8080",
		DBPath:                "station.db",
		TickDt:                1.0,
		AutosaveDt:            20.0,
		CatchupMax:            300.0,
		CatchupDecisionBudget: 50,
		Debug:                 false,
	}
}

// Load builds a Config from defaults plus environment overrides.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.Addr = envString("STATION_ADDR", cfg.Addr)
	cfg.DBPath = envString("STATION_DB_PATH", cfg.DBPath)
	cfg.TickDt = envFloat("STATION_TICK_DT", cfg.TickDt)
	cfg.AutosaveDt = envFloat("STATION_AUTOSAVE_DT", cfg.AutosaveDt)
	cfg.CatchupMax = envFloat("STATION_CATCHUP_MAX", cfg.CatchupMax)
	cfg.CatchupDecisionBudget = envInt("STATION_CATCHUP_DECISIONS", cfg.CatchupDecisionBudget)
	cfg.Debug = envBool("STATION_DEBUG", cfg.Debug)
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
