// Package config centralizes reading the process's environment-based
// configuration, the same constructor-function style the rest of the
// engine uses for its collaborators rather than a global singleton.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived knob the server needs.
type Config struct {
	// HTTPAddr is the address the submission front-end listens on.
	HTTPAddr string

	// StoreBackend selects "mem" or "mysql". DB_DSN is required when
	// it is "mysql".
	StoreBackend string
	DBDSN        string

	// EventQueueTimeout is the matching worker's per-tick poll
	// timeout (§4.5's T), also the cadence of the best-effort depth
	// snapshot write.
	EventQueueTimeout time.Duration

	// EventQueueSize bounds the buffered channel between HTTP
	// handlers and the matching worker.
	EventQueueSize int

	TradeLogPath string
	OrderLogPath string
	DepthLogPath string
}

// Load reads .env (if present; a missing file is not an error, matching
// godotenv's own convention) and then the process environment,
// applying defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] no .env file loaded: %v", err)
	}

	return &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:      getEnv("STORE_BACKEND", "mem"),
		DBDSN:             os.Getenv("DB_DSN"),
		EventQueueTimeout: getEnvDuration("EVENT_QUEUE_TIMEOUT", 1*time.Second),
		EventQueueSize:    getEnvInt("EVENT_QUEUE_SIZE", 1024),
		TradeLogPath:      getEnv("TRADE_LOG_PATH", "trade.log"),
		OrderLogPath:      getEnv("ORDER_LOG_PATH", "order.log"),
		DepthLogPath:      getEnv("DEPTH_LOG_PATH", "depth.log"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[WARN] invalid %s=%q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
