// Package config reads the service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	GroupID          string
	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

type Config struct {
	Addr     string
	LogLevel string

	// Cache backend: "redis" or "memory".
	CacheDriver  string
	RedisAddr    string
	CacheTTL     time.Duration
	MemCacheSize int

	// Reference store: "postgres" or "memory".
	ReferenceDriver string
	DatabaseURL     string
	StatesGeoJSON   string
	PricesCSV       string

	ORSBaseURL string
	ORSAPIKey  string

	MaxRangeMiles         float64
	MPG                   float64
	StartingFuelGallons   float64
	WaypointIntervalMiles float64

	Invalidation InvalidationCfg

	MetricsEnabled bool
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		CacheDriver:  getenv("CACHE_DRIVER", "redis"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     getduration("CACHE_TTL", 7*24*time.Hour),
		MemCacheSize: getint("MEM_CACHE_SIZE", 4096),

		ReferenceDriver: getenv("REFERENCE_DRIVER", "postgres"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		StatesGeoJSON:   getenv("STATES_GEOJSON", "data/us_states.geojson"),
		PricesCSV:       getenv("PRICES_CSV", "data/fuel_prices.csv"),

		ORSBaseURL: strings.TrimRight(getenv("OPEN_ROUTE_BASE_URL", "https://api.openrouteservice.org"), "/"),
		ORSAPIKey:  strings.TrimSpace(getenv("OPEN_ROUTE_API_KEY", "")),

		MaxRangeMiles:         getfloat("MAX_RANGE_MILES", 500),
		MPG:                   getfloat("MPG", 10),
		StartingFuelGallons:   getfloat("START_FUEL_GALLONS", 50),
		WaypointIntervalMiles: getfloat("WAYPOINT_INTERVAL_MILES", 50),

		Invalidation: InvalidationCfg{
			Enabled:          getbool("INVALIDATION_ENABLED", false),
			Brokers:          splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:            getenv("KAFKA_TOPIC", "fuel-price-reloads"),
			GroupID:          getenv("KAFKA_GROUP_ID", "plan-cache-invalidator"),
			SessionTimeout:   getduration("KAFKA_SESSION_TIMEOUT", 30*time.Second),
			Heartbeat:        getduration("KAFKA_HEARTBEAT", 3*time.Second),
			RebalanceTimeout: getduration("KAFKA_REBALANCE_TIMEOUT", 30*time.Second),
			InitialOldest:    getbool("KAFKA_INITIAL_OLDEST", true),
		},

		MetricsEnabled: getbool("METRICS_ENABLED", false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
