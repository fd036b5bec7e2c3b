package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// defaultUserAgent mimics a current desktop Chrome; several extractors
// refuse the default Go client string outright.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Port        int
	DownloadDir string

	// Worker pool sizing. QueueSize bounds jobs waiting for a worker;
	// submissions beyond it fail immediately instead of piling up.
	MaxWorkers int
	QueueSize  int

	// Registry limits. Terminal jobs older than JobTTL are evicted, and
	// the registry never tracks more than MaxJobs records.
	MaxJobs int
	JobTTL  time.Duration

	// Retention sweeper. Files in DownloadDir older than Retention are
	// deleted every SweepInterval.
	Retention     time.Duration
	SweepInterval time.Duration

	// Extractor network knobs.
	SocketTimeout time.Duration
	GeoCountry    string
	UserAgent     string

	LogLevel string
}

func Load() (*Config, error) {
	// A .env file is optional; real environment variables win either way.
	_ = godotenv.Load()

	// PORT alone is honored too, for hosts that inject it.
	port, err := intEnv("SNATCH_PORT", getEnv("PORT", "5000"))
	if err != nil {
		return nil, err
	}

	maxWorkers, err := intEnv("SNATCH_MAX_WORKERS", "3")
	if err != nil {
		return nil, err
	}
	if maxWorkers < 1 {
		return nil, fmt.Errorf("SNATCH_MAX_WORKERS must be at least 1")
	}

	queueSize, err := intEnv("SNATCH_QUEUE_SIZE", "16")
	if err != nil {
		return nil, err
	}
	if queueSize < 0 {
		return nil, fmt.Errorf("SNATCH_QUEUE_SIZE must not be negative")
	}

	maxJobs, err := intEnv("SNATCH_MAX_JOBS", "1000")
	if err != nil {
		return nil, err
	}
	if maxJobs < 1 {
		return nil, fmt.Errorf("SNATCH_MAX_JOBS must be at least 1")
	}

	jobTTL, err := durationEnv("SNATCH_JOB_TTL", "1h")
	if err != nil {
		return nil, err
	}

	retention, err := durationEnv("SNATCH_RETENTION", "30s")
	if err != nil {
		return nil, err
	}

	sweepInterval, err := durationEnv("SNATCH_SWEEP_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	socketTimeout, err := durationEnv("SNATCH_SOCKET_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	downloadDir := getEnv("SNATCH_DOWNLOAD_DIR", "")
	if downloadDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		downloadDir = filepath.Join(wd, "downloads")
	}

	return &Config{
		Port:          port,
		DownloadDir:   downloadDir,
		MaxWorkers:    maxWorkers,
		QueueSize:     queueSize,
		MaxJobs:       maxJobs,
		JobTTL:        jobTTL,
		Retention:     retention,
		SweepInterval: sweepInterval,
		SocketTimeout: socketTimeout,
		GeoCountry:    getEnv("SNATCH_GEO_COUNTRY", "US"),
		UserAgent:     getEnv("SNATCH_USER_AGENT", defaultUserAgent),
		LogLevel:      getEnv("SNATCH_LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key, defaultValue string) (int, error) {
	v, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
