package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"llmboundary/internal/charts"
	"llmboundary/internal/config"
	"llmboundary/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

func TestChartHandler_Extract(t *testing.T) {
	srv := setupTestApp(t, config.DefaultTokenBudgets(), nil)

	body, _ := json.Marshal(map[string]string{
		"text": answerWithChart + "\n```chart\n{\"type\": \"bar\" \"labels\": []}\n```\n",
	})
	resp := postJSON(t, srv.app, "/api/charts/extract", string(body))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var extraction charts.Extraction
	decodeBody(t, resp, &extraction)

	if extraction.Text != "Revenue:\n[[CHART:0]]\nThanks\n" {
		t.Errorf("text = %q", extraction.Text)
	}
	if len(extraction.Charts) != 1 || extraction.Charts[0].Title != "Revenue 2024" {
		t.Fatalf("charts = %+v", extraction.Charts)
	}
	if len(extraction.Dropped) != 1 || extraction.Dropped[0].Reason != charts.DropParseError {
		t.Errorf("dropped = %+v", extraction.Dropped)
	}
	if srv.cache.Len() != 1 {
		t.Errorf("extraction should be cached, cache len = %d", srv.cache.Len())
	}
}

func TestChartHandler_InvalidBody(t *testing.T) {
	srv := setupTestApp(t, config.DefaultTokenBudgets(), nil)

	for _, path := range []string{"/api/charts/extract", "/api/charts/render", "/api/charts/export"} {
		t.Run(path, func(t *testing.T) {
			resp := postJSON(t, srv.app, path, "{not json")
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestChartHandler_Render(t *testing.T) {
	srv := setupTestApp(t, config.DefaultTokenBudgets(), nil)

	tests := []struct {
		name       string
		format     string
		wantStatus int
		check      func(t *testing.T, result services.RenderResult)
	}{
		{
			name:       "default format is html",
			format:     "",
			wantStatus: fiber.StatusOK,
			check: func(t *testing.T, result services.RenderResult) {
				if result.Format != services.FormatHTML || !strings.Contains(result.Output, `class="chart"`) {
					t.Errorf("html output = %q", result.Output)
				}
			},
		},
		{
			name:       "telegram summarizes charts",
			format:     "Telegram",
			wantStatus: fiber.StatusOK,
			check: func(t *testing.T, result services.RenderResult) {
				if !strings.Contains(result.Output, "Revenue 2024") || strings.Contains(result.Output, "[[CHART:") {
					t.Errorf("telegram output = %q", result.Output)
				}
			},
		},
		{
			name:       "segments",
			format:     "segments",
			wantStatus: fiber.StatusOK,
			check: func(t *testing.T, result services.RenderResult) {
				if len(result.Segments) != 3 || result.Segments[1].Chart == nil {
					t.Errorf("segments = %+v", result.Segments)
				}
			},
		},
		{
			name:       "unknown format",
			format:     "pdf",
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"text": answerWithChart, "format": tt.format})
			resp := postJSON(t, srv.app, "/api/charts/render", string(body))
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.check == nil {
				return
			}
			var result services.RenderResult
			decodeBody(t, resp, &result)
			tt.check(t, result)
		})
	}
}

func TestChartHandler_Export(t *testing.T) {
	srv := setupTestApp(t, config.DefaultTokenBudgets(), nil)

	chart := `{"chart":{"type":"line","title":"Revenue 2024","labels":["Q1","Q2"],"datasets":[{"label":"EUR","data":[120,null]}]}}`
	resp := postJSON(t, srv.app, "/api/charts/export", chart)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != xlsxContentType {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "revenue-2024.xlsx") {
		t.Errorf("Content-Disposition = %q", got)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("response is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Q1" || rows[1][1] != "120" {
		t.Errorf("rows = %v", rows)
	}
}

func TestChartHandler_ExportRejectsInvalidChart(t *testing.T) {
	srv := setupTestApp(t, config.DefaultTokenBudgets(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing chart", `{}`},
		{"no datasets", `{"chart":{"type":"bar","labels":["a"],"datasets":[]}}`},
		{"only gaps", `{"chart":{"type":"bar","labels":["a"],"datasets":[{"label":"s","data":[null]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.app, "/api/charts/export", tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", resp.StatusCode)
			}
		})
	}
}
