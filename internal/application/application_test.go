package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/config"
)

func testConfig(driver, url string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: driver, URL: url, Migrate: true},
		Import: config.ImportConfig{
			MaxFileSize:     1 << 20,
			MaxConcurrent:   1,
			MaxWait:         time.Second,
			Timeout:         time.Minute,
			SlugMaxAttempts: 3,
		},
		Cache: config.CacheConfig{TTL: time.Minute},
	}
}

// ============================================================================
// Open Tests
// ============================================================================

func TestOpen_Drivers(t *testing.T) {
	tests := []struct {
		driver string
		url    string
	}{
		{"memory", ""},
		{"sqlite", ":memory:"},
		{"SQLite", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			ctx := context.Background()
			app, err := Open(ctx, testConfig(tt.driver, tt.url), "catalog-test")
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer app.Close()

			out, err := app.Service.ImportText(ctx, "name,price,categoryId\nMug,4.50,kitchen\n")
			if err != nil || out.SuccessCount != 1 {
				t.Fatalf("ImportText() = %+v, %v", out, err)
			}
			if _, err := app.Service.Product(ctx, "mug"); err != nil {
				t.Errorf("Product() error = %v", err)
			}
			if got := app.Limiter.Status().MaxConcurrent; got != 1 {
				t.Errorf("limiter MaxConcurrent = %d, want 1", got)
			}
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), testConfig("mongo", "x"), "catalog-test")
	if err == nil || !strings.Contains(err.Error(), "mongo") {
		t.Errorf("Open() error = %v, want unknown driver", err)
	}
}

func TestOpen_OptionalServicesDegrade(t *testing.T) {
	cfg := testConfig("memory", "")
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"
	cfg.Events.NatsURL = "nats://127.0.0.1:1"
	cfg.Events.Subject = "catalog.import.completed"

	app, err := Open(context.Background(), cfg, "catalog-test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(app.closers) != 0 {
		t.Errorf("closers = %d, want none for unreachable services", len(app.closers))
	}
	if err := app.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
