package handlers

import (
	"errors"
	"regexp"
	"strings"

	"llmboundary/internal/logging"
	"llmboundary/internal/models"
	"llmboundary/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ChartHandler exposes chart extraction, rendering and export
type ChartHandler struct {
	charts *services.ChartService
	log    *logrus.Entry
}

// NewChartHandler creates a new chart handler
func NewChartHandler(chartService *services.ChartService, log *logrus.Entry) *ChartHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &ChartHandler{charts: chartService, log: log}
}

type extractRequest struct {
	Text string `json:"text"`
}

type renderRequest struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

type exportRequest struct {
	Chart *models.ChartSpec `json:"chart"`
}

// Extract pulls chart blocks out of a model answer
// POST /api/charts/extract
func (h *ChartHandler) Extract(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.JSON(h.charts.Extract(c.UserContext(), req.Text))
}

// Render extracts charts and renders the woven answer for a display channel
// POST /api/charts/render
func (h *ChartHandler) Render(c *fiber.Ctx) error {
	var req renderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.charts.Render(c.UserContext(), req.Text, services.RenderFormat(strings.ToLower(req.Format)))
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported format, use html, telegram or segments",
			})
		}
		h.log.WithError(err).Error("❌ [CHARTS] Render failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render answer",
		})
	}

	return c.JSON(result)
}

// Export returns a chart as an XLSX workbook
// POST /api/charts/export
func (h *ChartHandler) Export(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Chart == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "chart is required",
		})
	}

	data, err := h.charts.Export(req.Chart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Attachment(exportFilename(req.Chart))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}

// exportFilename derives a download name from the chart title
func exportFilename(spec *models.ChartSpec) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(spec.Title), "-"), "-")
	if name == "" {
		name = "chart"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return name + ".xlsx"
}
