package preflight

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"llmboundary/internal/charts"
	"llmboundary/internal/config"
	"llmboundary/internal/services"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before server starts
type Checker struct {
	cfg   *config.Config
	redis *services.RedisService
}

// NewChecker creates a new preflight checker. redis may be nil.
func NewChecker(cfg *config.Config, redis *services.RedisService) *Checker {
	return &Checker{cfg: cfg, redis: redis}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkTokenBudgets(),
		c.checkChartTheme(),
		c.checkModelEndpoint(),
		c.checkRedis(ctx),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkTokenBudgets verifies every budget is positive and fits under the total ceiling
func (c *Checker) checkTokenBudgets() CheckResult {
	b := c.cfg.Budgets
	parts := []struct {
		name  string
		value int
	}{
		{"TOKEN_BUDGET_TOTAL", b.Total},
		{"TOKEN_BUDGET_CONTEXT", b.Context},
		{"TOKEN_BUDGET_DATA", b.Data},
		{"TOKEN_BUDGET_PROMPT", b.Prompt},
	}

	for _, p := range parts {
		if p.value <= 0 {
			return CheckResult{
				Name:    "Token Budgets",
				Status:  "fail",
				Message: fmt.Sprintf("%s must be positive, got %d", p.name, p.value),
			}
		}
	}
	for _, p := range parts[1:] {
		if p.value > b.Total {
			return CheckResult{
				Name:    "Token Budgets",
				Status:  "warning",
				Message: fmt.Sprintf("%s (%d) is larger than the total ceiling (%d)", p.name, p.value, b.Total),
			}
		}
	}

	return CheckResult{
		Name:    "Token Budgets",
		Status:  "pass",
		Message: fmt.Sprintf("total=%d context=%d data=%d prompt=%d", b.Total, b.Context, b.Data, b.Prompt),
	}
}

// checkChartTheme verifies the configured theme file loads
func (c *Checker) checkChartTheme() CheckResult {
	if c.cfg.ChartThemeFile == "" {
		return CheckResult{
			Name:    "Chart Theme",
			Status:  "pass",
			Message: "Using default palette",
		}
	}

	theme, err := charts.LoadTheme(c.cfg.ChartThemeFile)
	if err != nil {
		return CheckResult{
			Name:    "Chart Theme",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot load %s", c.cfg.ChartThemeFile),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Chart Theme",
		Status:  "pass",
		Message: fmt.Sprintf("Loaded %s (%d colors)", c.cfg.ChartThemeFile, len(theme.Palette)),
	}
}

// checkModelEndpoint verifies the model endpoint settings
func (c *Checker) checkModelEndpoint() CheckResult {
	if c.cfg.LLMBaseURL == "" || c.cfg.LLMModel == "" {
		return CheckResult{
			Name:    "Model Endpoint",
			Status:  "warning",
			Message: "LLM_BASE_URL or LLM_MODEL not set, completions disabled",
		}
	}

	u, err := url.Parse(c.cfg.LLMBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return CheckResult{
			Name:    "Model Endpoint",
			Status:  "fail",
			Message: fmt.Sprintf("LLM_BASE_URL %q is not an http(s) URL", c.cfg.LLMBaseURL),
			Error:   err,
		}
	}

	if c.cfg.LLMAPIKey == "" {
		return CheckResult{
			Name:    "Model Endpoint",
			Status:  "warning",
			Message: fmt.Sprintf("LLM_API_KEY not set for %s", u.Host),
		}
	}

	return CheckResult{
		Name:    "Model Endpoint",
		Status:  "pass",
		Message: fmt.Sprintf("%s (model %s)", u.Host, c.cfg.LLMModel),
	}
}

// checkRedis verifies the optional shared render cache is reachable
func (c *Checker) checkRedis(ctx context.Context) CheckResult {
	if c.cfg.RedisURL == "" {
		return CheckResult{
			Name:    "Redis",
			Status:  "warning",
			Message: "REDIS_URL not set, render cache is memory only",
		}
	}
	if c.redis == nil {
		return CheckResult{
			Name:    "Redis",
			Status:  "warning",
			Message: "Redis unavailable, render cache is memory only",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Redis",
			Status:  "warning",
			Message: "Redis ping failed, render cache is memory only",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Redis",
		Status:  "pass",
		Message: "Shared render cache reachable",
	}
}
