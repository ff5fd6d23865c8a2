package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	JWTSecret          string
	CORSAllowedOrigins []string
	GeoIPDBPath        string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	SessionTTL         time.Duration

	GeminiAPIKey          string
	GeminiBaseURL         string
	GeminiImageModel      string
	GeminiTextModel       string
	GenerationMaxAttempts int
	GenerationRetryDelay  time.Duration

	StorageDriver   string
	StoragePath     string
	StorageBaseURL  string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	S3PublicBaseURL string

	PrintfulAPIKey        string
	PrintfulBaseURL       string
	PrintfulStoreID       string
	PrintfulRatePerMinute int
	MockupPollInterval    time.Duration
	MockupPollAttempts    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Only the pieces every binary needs are validated here; binaries check the rest themselves.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SessionTTL:         getEnvDuration("SESSION_TTL", 2*time.Hour),

		GeminiAPIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiImageModel:      getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTextModel:       getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GenerationMaxAttempts: getEnvInt("GENERATION_MAX_ATTEMPTS", 10),
		GenerationRetryDelay:  getEnvDuration("GENERATION_RETRY_DELAY", 2*time.Second),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
		StoragePath:     getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3UseSSL:        getEnvBool("S3_USE_SSL", true),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		PrintfulAPIKey:        strings.TrimSpace(os.Getenv("PRINTFUL_API_KEY")),
		PrintfulBaseURL:       getEnv("PRINTFUL_BASE_URL", "https://api.printful.com"),
		PrintfulStoreID:       os.Getenv("PRINTFUL_STORE_ID"),
		PrintfulRatePerMinute: getEnvInt("PRINTFUL_RATE_PER_MINUTE", 120),
		MockupPollInterval:    getEnvDuration("MOCKUP_POLL_INTERVAL", time.Second),
		MockupPollAttempts:    getEnvInt("MOCKUP_POLL_ATTEMPTS", 30),
	}

	switch cfg.StorageDriver {
	case "file":
	case "s3":
		if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.GenerationMaxAttempts <= 0 {
		return nil, fmt.Errorf("GENERATION_MAX_ATTEMPTS must be positive")
	}
	if cfg.MockupPollAttempts <= 0 {
		return nil, fmt.Errorf("MOCKUP_POLL_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// RequireAPI validates the settings only the HTTP API needs.
func (c *Config) RequireAPI() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// StorageHost returns the host serving stored artifacts, used to label probe logs.
func (c *Config) StorageHost() string {
	raw := c.StorageBaseURL
	if c.StorageDriver == "s3" && c.S3PublicBaseURL != "" {
		raw = c.S3PublicBaseURL
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("1500ms") and bare integers as seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
