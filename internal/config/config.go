package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"biophony/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Engine   EngineConfig
	Resample ResampleConfig
	Output   OutputConfig
	Archive  ArchiveConfig
}

// DataConfig locates the input files
type DataConfig struct {
	DetectionsFile string // biological detections (targets)
	IndicesFile    string // acoustic indices (probes)
}

// EngineConfig carries the ranking batch settings
type EngineConfig struct {
	HourBuckets         []int
	Aggregation         string // "sum" or "mean"
	MultiMatchThreshold float64
	TopN                int
	Workers             int
}

// ResampleConfig carries the temporal alignment settings
type ResampleConfig struct {
	Enabled     bool
	Interval    time.Duration
	Aggregation string // sum|mean|count|max|min
	Fill        string // zero|forward|mean|nan
	MinPoints   int
	MaxGapRatio float64
}

// OutputConfig controls where reports land
type OutputConfig struct {
	Dir      string
	PageSize int // pairs per paginated JSON view
}

// ArchiveConfig controls the optional Postgres run archive
type ArchiveConfig struct {
	DatabaseURL string // empty disables archiving
}

// Load builds configuration from environment variables and validates it
func Load() (*Config, error) {
	hourBuckets, err := parseHourBuckets(getEnvOrDefault("HOUR_BUCKETS", ""))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Data: DataConfig{
			DetectionsFile: getEnvOrDefault("DETECTIONS_FILE", ""),
			IndicesFile:    getEnvOrDefault("INDICES_FILE", ""),
		},
		Engine: EngineConfig{
			HourBuckets:         hourBuckets,
			Aggregation:         getEnvOrDefault("AGGREGATION", "mean"),
			MultiMatchThreshold: getEnvFloatOrDefault("MULTI_MATCH_THRESHOLD", 0.4),
			TopN:                getEnvIntOrDefault("TOP_N", 20),
			Workers:             getEnvIntOrDefault("WORKERS", 4),
		},
		Resample: ResampleConfig{
			Enabled:     getEnvBoolOrDefault("RESAMPLE_ENABLED", true),
			Interval:    getEnvDurationOrDefault("RESAMPLE_INTERVAL", 2*time.Hour),
			Aggregation: getEnvOrDefault("RESAMPLE_AGGREGATION", "mean"),
			Fill:        getEnvOrDefault("RESAMPLE_FILL", "zero"),
			MinPoints:   getEnvIntOrDefault("RESAMPLE_MIN_POINTS", 10),
			MaxGapRatio: getEnvFloatOrDefault("RESAMPLE_MAX_GAP_RATIO", 0.5),
		},
		Output: OutputConfig{
			Dir:      getEnvOrDefault("OUTPUT_DIR", "./output"),
			PageSize: getEnvIntOrDefault("VIEW_PAGE_SIZE", 500),
		},
		Archive: ArchiveConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// parseHourBuckets reads a comma-separated hour list; empty input falls
// back to the twelve even hours matching a 2-hour recorder duty cycle.
func parseHourBuckets(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		buckets := make([]int, 0, 12)
		for h := 0; h < 24; h += 2 {
			buckets = append(buckets, h)
		}
		return buckets, nil
	}

	parts := strings.Split(raw, ",")
	buckets := make([]int, 0, len(parts))
	for _, part := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("HOUR_BUCKETS entry %q is not an integer", part))
		}
		buckets = append(buckets, h)
	}
	return buckets, nil
}

func validateConfig(config *Config) error {
	if len(config.Engine.HourBuckets) == 0 {
		return errors.ConfigInvalid("hour buckets must not be empty")
	}
	seen := make(map[int]bool, len(config.Engine.HourBuckets))
	for _, h := range config.Engine.HourBuckets {
		if h < 0 || h > 23 {
			return errors.ConfigInvalid(fmt.Sprintf("hour bucket %d outside [0,23]", h))
		}
		if seen[h] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate hour bucket %d", h))
		}
		seen[h] = true
	}
	switch config.Engine.Aggregation {
	case "sum", "mean":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown aggregation %q", config.Engine.Aggregation))
	}
	if t := config.Engine.MultiMatchThreshold; t < 0 || t > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("multi-match threshold %g outside [0,1]", t))
	}
	if config.Engine.Workers < 1 {
		return errors.ConfigInvalid("workers must be at least 1")
	}
	if config.Resample.Interval <= 0 {
		return errors.ConfigInvalid("resample interval must be positive")
	}
	if config.Output.PageSize < 1 {
		return errors.ConfigInvalid("view page size must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
