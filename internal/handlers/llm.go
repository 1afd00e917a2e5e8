package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"llmboundary/internal/logging"
	"llmboundary/internal/models"
	"llmboundary/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LLMHandler exposes outbound request shaping and the completion pipeline
type LLMHandler struct {
	shaper *services.RequestShaper
	chat   *services.ChatService
	log    *logrus.Entry
}

// NewLLMHandler creates a new LLM handler
func NewLLMHandler(shaper *services.RequestShaper, chat *services.ChatService, log *logrus.Entry) *LLMHandler {
	if log == nil {
		log = logging.Discard()
	}
	return &LLMHandler{shaper: shaper, chat: chat, log: log}
}

// completeRequest keeps data raw so object key order survives decoding
type completeRequest struct {
	Prompt  string                     `json:"prompt"`
	Context []models.CompletionMessage `json:"context"`
	Data    json.RawMessage            `json:"data"`
}

// Shape trims a raw outbound request body to the token budgets
// POST /api/llm/shape
func (h *LLMHandler) Shape(c *fiber.Ctx) error {
	shaped, report, err := h.shaper.ShapeRequestBody(c.Body())
	if err != nil {
		if be, ok := services.IsBudgetExceeded(err); ok {
			return budgetExceeded(c, be)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("X-Estimated-Tokens", strconv.Itoa(report.TotalTokens))
	c.Set("X-Data-Trimmed", strconv.FormatBool(report.DataTrimmed))
	c.Set("X-Context-Dropped", strconv.Itoa(report.ContextDropped))
	c.Set("X-Prompt-Trimmed", strconv.FormatBool(report.PromptTrimmed))
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(shaped)
}

// Complete shapes the request, asks the model and extracts charts from the answer
// POST /api/llm/complete
func (h *LLMHandler) Complete(c *fiber.Ctx) error {
	if !h.chat.Available() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "No model endpoint configured",
		})
	}

	var body completeRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req := models.CompletionRequest{Prompt: body.Prompt, Context: body.Context}
	if len(body.Data) > 0 && string(body.Data) != "null" {
		data, err := services.DecodeOrdered(body.Data)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid data field",
			})
		}
		req.Data = data
	}

	result, err := h.chat.Complete(c.UserContext(), req)
	if err != nil {
		return h.completionError(c, err)
	}
	return c.JSON(result)
}

func (h *LLMHandler) completionError(c *fiber.Ctx, err error) error {
	if be, ok := services.IsBudgetExceeded(err); ok {
		return budgetExceeded(c, be)
	}

	var modelErr *services.ModelError
	switch {
	case errors.Is(err, services.ErrModelClientUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "No model endpoint configured",
		})
	case errors.As(err, &modelErr) && modelErr.RetryAfter > 0:
		retryAfter := int(math.Ceil(modelErr.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       err.Error(),
			"retry_after": retryAfter,
		})
	case modelErr != nil, errors.Is(err, services.ErrEmptyCompletion):
		h.log.WithError(err).Warn("⚠️  [LLM] Model request failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "Model request timed out",
		})
	default:
		h.log.WithError(err).Error("❌ [LLM] Completion failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Completion failed",
		})
	}
}

func budgetExceeded(c *fiber.Ctx, be *services.BudgetExceededError) error {
	return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
		"error":            be.Error(),
		"estimated_tokens": be.Estimated,
		"ceiling":          be.Ceiling,
	})
}
