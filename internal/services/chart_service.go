package services

import (
	"context"
	"errors"
	"fmt"

	"llmboundary/internal/charts"
	"llmboundary/internal/logging"
	"llmboundary/internal/models"

	"github.com/sirupsen/logrus"
)

// RenderFormat selects how a woven answer is rendered
type RenderFormat string

const (
	FormatHTML     RenderFormat = "html"
	FormatTelegram RenderFormat = "telegram"
	FormatSegments RenderFormat = "segments"
)

// ErrUnsupportedFormat is returned for an unknown RenderFormat
var ErrUnsupportedFormat = errors.New("unsupported render format")

// RenderResult is a rendered answer plus extraction diagnostics
type RenderResult struct {
	Format   RenderFormat          `json:"format"`
	Output   string                `json:"output,omitempty"`
	Segments []charts.Segment      `json:"segments,omitempty"`
	Charts   int                   `json:"charts"`
	Dropped  []charts.DroppedBlock `json:"dropped"`
}

// ChartService extracts and renders charts in model answers
type ChartService struct {
	extractor *charts.Extractor
	cache     *RenderCache
	metrics   *Metrics
	log       *logrus.Entry
}

// NewChartService creates a chart service. cache and metrics may be nil.
func NewChartService(extractor *charts.Extractor, cache *RenderCache, metrics *Metrics, log *logrus.Entry) *ChartService {
	if log == nil {
		log = logging.Discard()
	}
	return &ChartService{extractor: extractor, cache: cache, metrics: metrics, log: log}
}

// Extract returns the text with placeholders and its chart specs. Results are
// cached by answer text; metrics count only fresh extractions.
func (s *ChartService) Extract(ctx context.Context, text string) charts.Extraction {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, text); ok {
			return cached
		}
	}

	extraction := s.extractor.Extract(text)
	s.metrics.RecordExtraction(len(extraction.Charts), extraction.DropReasons())
	if len(extraction.Dropped) > 0 {
		s.log.WithField("dropped", len(extraction.Dropped)).Info("📊 [CHARTS] Answer had unusable chart blocks")
	}

	if s.cache != nil {
		s.cache.Set(ctx, text, extraction)
	}
	return extraction
}

// Render extracts charts from text and renders the result in format
func (s *ChartService) Render(ctx context.Context, text string, format RenderFormat) (*RenderResult, error) {
	if format == "" {
		format = FormatHTML
	}

	extraction := s.Extract(ctx, text)
	segments := charts.Render(extraction.Text, extraction.Charts)
	result := &RenderResult{
		Format:  format,
		Charts:  len(extraction.Charts),
		Dropped: extraction.Dropped,
	}

	switch format {
	case FormatHTML:
		html, err := charts.RenderHTML(segments)
		if err != nil {
			return nil, err
		}
		result.Output = html
	case FormatTelegram:
		result.Output = charts.RenderTelegram(segments)
	case FormatSegments:
		result.Segments = segments
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return result, nil
}

// Export builds an XLSX workbook for one chart
func (s *ChartService) Export(spec *models.ChartSpec) ([]byte, error) {
	data, err := charts.ExportXLSX(spec)
	if err != nil {
		return nil, err
	}
	s.log.WithField("bytes", len(data)).Debug("📄 [CHARTS] Exported chart workbook")
	return data, nil
}
