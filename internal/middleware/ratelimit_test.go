package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestLoadRateLimitConfig(t *testing.T) {
	tests := []struct {
		name           string
		env            map[string]string
		wantGlobal     int
		wantCompletion int
	}{
		{"defaults", nil, 200, 20},
		{"overrides", map[string]string{"RATE_LIMIT_GLOBAL_API": "50", "RATE_LIMIT_COMPLETION": "5"}, 50, 5},
		{"invalid values are ignored", map[string]string{"RATE_LIMIT_GLOBAL_API": "-1", "RATE_LIMIT_COMPLETION": "lots"}, 200, 20},
		{"development", map[string]string{"ENVIRONMENT": "development"}, 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "")
			t.Setenv("RATE_LIMIT_GLOBAL_API", "")
			t.Setenv("RATE_LIMIT_COMPLETION", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := LoadRateLimitConfig()
			if cfg.GlobalAPIMax != tt.wantGlobal || cfg.CompletionMax != tt.wantCompletion {
				t.Errorf("got global=%d completion=%d, want %d/%d", cfg.GlobalAPIMax, cfg.CompletionMax, tt.wantGlobal, tt.wantCompletion)
			}
		})
	}
}

func TestCompletionRateLimiter(t *testing.T) {
	cfg := &RateLimitConfig{
		GlobalAPIMax:         100,
		GlobalAPIExpiration:  time.Minute,
		CompletionMax:        2,
		CompletionExpiration: time.Minute,
	}

	app := fiber.New()
	app.Use("/api", GlobalAPIRateLimiter(cfg))
	app.Post("/api/llm/complete", CompletionRateLimiter(cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i, want := range []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest("POST", "/api/llm/complete", nil))
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		if resp.StatusCode != want {
			t.Errorf("request %d: Expected status %d, got %d", i+1, want, resp.StatusCode)
		}
	}
}
