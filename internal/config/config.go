// Package config handles crawler configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all crawler configuration. CLI flags override the
// environment-derived values loaded here.
type Config struct {
	// Seed input
	SeedPath string

	// Crawl limits
	MaxPages        int
	MaxDepth        int
	Concurrent      int           // concurrent domain pipelines per worker
	Workers         int           // process-internal workers, one chunk each
	WorkerID        int           // base numeric ID used in output file naming
	PipelineTimeout time.Duration // soft wall-clock cap per domain
	AllowSubdomains bool
	RespectRobots   bool
	FailureRecords  bool
	RatePerSec      float64 // tier-A request rate cap, 0 = unlimited

	// Fetch
	UserAgent   string
	ArchiveBase string // web archive endpoint (CDX + snapshot)

	// Sink
	NoIndex          bool
	OutputDir        string
	ESHost           string
	ESPort           int
	ESScheme         string
	ESIndex          string
	ESUsername       string
	ESPassword       string
	ESAPIKey         string
	ChunkSize        int
	DeterministicIDs bool
	StrictSink       bool

	// Object storage upload of completed JSONL files (optional)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StoragePrefix    string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		MaxPages:        getEnvInt("SUBMARINE_MAX_PAGES", 50),
		MaxDepth:        getEnvInt("SUBMARINE_MAX_DEPTH", 2),
		Concurrent:      getEnvInt("SUBMARINE_CONCURRENT", 20),
		Workers:         getEnvInt("SUBMARINE_WORKERS", 1),
		WorkerID:        getEnvInt("SUBMARINE_WORKER_ID", 0),
		PipelineTimeout: getEnvDuration("SUBMARINE_PIPELINE_TIMEOUT", 120*time.Second),
		AllowSubdomains: getEnvBool("SUBMARINE_ALLOW_SUBDOMAINS", false),
		RespectRobots:   getEnvBool("SUBMARINE_RESPECT_ROBOTS", true),
		FailureRecords:  getEnvBool("SUBMARINE_FAILURE_RECORDS", true),
		RatePerSec:      getEnvFloat("SUBMARINE_RATE", 0),

		UserAgent:   getEnv("USER_AGENT", ""),
		ArchiveBase: getEnv("SUBMARINE_ARCHIVE_BASE", "https://web.archive.org"),

		NoIndex:          getEnvBool("SUBMARINE_NO_INDEX", false),
		OutputDir:        getEnv("SUBMARINE_OUTPUT_DIR", "/data/crawl_output"),
		ESHost:           getEnv("ELASTICSEARCH_HOST", "localhost"),
		ESPort:           getEnvInt("ELASTICSEARCH_PORT", 9200),
		ESScheme:         getEnv("ELASTICSEARCH_SCHEME", "http"),
		ESIndex:          getEnv("ELASTICSEARCH_INDEX", "submarine-scrapes"),
		ESUsername:       getEnv("ELASTICSEARCH_USERNAME", ""),
		ESPassword:       getEnv("ELASTICSEARCH_PASSWORD", ""),
		ESAPIKey:         getEnv("ELASTICSEARCH_API_KEY", ""),
		ChunkSize:        getEnvInt("SUBMARINE_CHUNK_SIZE", 500),
		DeterministicIDs: getEnvBool("SUBMARINE_DETERMINISTIC_IDS", false),
		StrictSink:       getEnvBool("SUBMARINE_STRICT_SINK", false),

		// S3-compatible storage, using the standard AWS env vars
		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnvWithFallback("S3_BUCKET", "BUCKET_NAME", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
		StoragePrefix:    getEnv("S3_PREFIX", ""),
	}
	return cfg
}

// Validate checks the configuration after flags have been applied.
func (c *Config) Validate() error {
	if c.SeedPath == "" {
		return fmt.Errorf("seed file path is required")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max-pages must be >= 0, got %d", c.MaxPages)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max-depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Concurrent < 1 {
		return fmt.Errorf("concurrent must be >= 1, got %d", c.Concurrent)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.PipelineTimeout)
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("rate must be >= 0, got %f", c.RatePerSec)
	}
	if !c.NoIndex {
		if c.ESHost == "" {
			return fmt.Errorf("es-host is required in index mode")
		}
		if c.ESPort < 1 || c.ESPort > 65535 {
			return fmt.Errorf("es-port out of range: %d", c.ESPort)
		}
		if c.ESIndex == "" {
			return fmt.Errorf("es-index is required in index mode")
		}
	}
	if c.UploadEnabled() && (c.StorageAccessKey == "" || c.StorageSecretKey == "") {
		return fmt.Errorf("S3 upload configured without credentials")
	}
	return nil
}

// IndexingEnabled reports whether records go to the search cluster.
func (c *Config) IndexingEnabled() bool {
	return !c.NoIndex
}

// UploadEnabled reports whether completed JSONL files are shipped to
// object storage.
func (c *Config) UploadEnabled() bool {
	return c.StorageBucket != ""
}

// ESAddresses returns the search-cluster endpoint list.
func (c *Config) ESAddresses() []string {
	return []string{fmt.Sprintf("%s://%s:%d", c.ESScheme, c.ESHost, c.ESPort)}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	if value := os.Getenv(fallback); value != "" {
		return value
	}
	return defaultValue
}
