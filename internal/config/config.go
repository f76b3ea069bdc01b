package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for the checker service.
type Config struct {
	Env      string
	HTTPPort string

	// Redis-backed job store. Empty RedisAddr falls back to the in-memory
	// store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Object store (S3/MinIO).
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	PDFBucket   string
	HTMLBucket  string

	// Analyzer services, one per document family.
	AnalyzerPDFURL  string
	AnalyzerHTMLURL string
	AnalyzerTimeout time.Duration

	// Analyzer invocation options, recorded on every result.
	WCAGStandard    string
	Runner          string
	IncludeWarnings bool
	IncludeNotices  bool

	// Bounded parallelism for multi-resource jobs.
	Concurrency int

	ReportsDir     string
	MaxUploadBytes int64

	// Temp-resource sweeper.
	CleanupInterval  time.Duration
	CleanupRetention time.Duration

	// Submission rate limiting.
	RateLimitCapacity int
	RateLimitRefill   float64
}

// Load reads configuration from environment variables with sane defaults for
// local development.
func Load() Config {
	return Config{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		S3Endpoint:        getEnv("S3_ENDPOINT", "http://localhost:9010"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       getEnv("S3_SECRET_KEY", "minioadmin123"),
		S3PathStyle:       getEnvBool("S3_PATH_STYLE", true),
		PDFBucket:         getEnv("PDF_BUCKET", "pdf-reports"),
		HTMLBucket:        getEnv("HTML_BUCKET", "html-reports"),
		AnalyzerPDFURL:    getEnv("PDF_ANALYZER_URL", "http://localhost:5000"),
		AnalyzerHTMLURL:   getEnv("HTML_ANALYZER_URL", "http://localhost:5001"),
		AnalyzerTimeout:   getEnvDuration("ANALYZER_TIMEOUT", 5*time.Minute),
		WCAGStandard:      getEnv("WCAG_STANDARD", "WCAG2AA"),
		Runner:            getEnv("RUNNER", "axe"),
		IncludeWarnings:   getEnvBool("INCLUDE_WARNINGS", true),
		IncludeNotices:    getEnvBool("INCLUDE_NOTICES", false),
		Concurrency:       getEnvInt("CONCURRENCY", 2),
		ReportsDir:        getEnv("REPORTS_DIR", "./reports"),
		MaxUploadBytes:    getEnvInt64("MAX_UPLOAD_BYTES", 50*1024*1024),
		CleanupInterval:   getEnvDuration("CLEANUP_INTERVAL", 30*time.Second),
		CleanupRetention:  getEnvDuration("CLEANUP_RETENTION", 2*time.Minute),
		RateLimitCapacity: getEnvInt("RATE_LIMIT_CAPACITY", 20),
		RateLimitRefill:   getEnvFloat("RATE_LIMIT_REFILL_PER_SEC", 5),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
