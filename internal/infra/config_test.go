package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaultStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:8080/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
	if cfg.StorageHost() != "localhost" {
		t.Fatalf("StorageHost mismatch: %q", cfg.StorageHost())
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := "http://localhost:1919/static"
	if cfg.StorageBaseURL != expected {
		t.Fatalf("StorageBaseURL mismatch: got %q want %q", cfg.StorageBaseURL, expected)
	}
}

func TestLoadConfigPipelineDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "")
	t.Setenv("GENERATION_RETRY_DELAY", "")
	t.Setenv("MOCKUP_POLL_INTERVAL", "")
	t.Setenv("MOCKUP_POLL_ATTEMPTS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GenerationMaxAttempts != 10 || cfg.GenerationRetryDelay != 2*time.Second {
		t.Fatalf("generation defaults = %d/%s", cfg.GenerationMaxAttempts, cfg.GenerationRetryDelay)
	}
	if cfg.MockupPollAttempts != 30 || cfg.MockupPollInterval != time.Second {
		t.Fatalf("mockup poll defaults = %d/%s", cfg.MockupPollAttempts, cfg.MockupPollInterval)
	}
}

func TestLoadConfigDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MOCKUP_POLL_INTERVAL", "3")
	t.Setenv("SESSION_TTL", "45m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MockupPollInterval != 3*time.Second {
		t.Fatalf("MockupPollInterval = %s", cfg.MockupPollInterval)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("SessionTTL = %s", cfg.SessionTTL)
	}
}

func TestLoadConfigRequiresBucketForS3(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_ENDPOINT", "s3.amazonaws.com")
	t.Setenv("S3_BUCKET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when S3_BUCKET is missing")
	}
}

func TestLoadConfigSplitsCORSOrigins(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestRequireAPI(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireAPI(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
	cfg.DatabaseURL = "postgres://example"
	if err := cfg.RequireAPI(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.RequireAPI(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
