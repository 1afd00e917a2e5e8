package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"llmboundary/internal/logging"
	"llmboundary/internal/models"

	"github.com/sirupsen/logrus"
)

// ChartInstructions is the system prompt that tells the model how to embed charts
const ChartInstructions = "When a chart helps, embed it as a fenced code block tagged chart containing one JSON object:\n" +
	"```chart\n" +
	`{"type": "bar", "title": "...", "data": {"labels": ["A", "B"], "datasets": [{"label": "Series", "data": [1, 2]}]}}` + "\n" +
	"```\n" +
	"Supported types: bar, line, area, pie, doughnut, scatter, bubble, radar, polarArea. " +
	"Use {\"x\": .., \"y\": ..} points for scatter and add \"r\" for bubble. Never put comments in the JSON."

// ChatService runs one completion through shaping, the model and chart extraction
type ChatService struct {
	shaper  *RequestShaper
	client  ModelClient
	charts  *ChartService
	metrics *Metrics
	log     *logrus.Entry
}

// NewChatService wires the completion pipeline. client may be nil when no model
// endpoint is configured; Complete then returns ErrModelClientUnavailable.
func NewChatService(shaper *RequestShaper, client ModelClient, chartService *ChartService, metrics *Metrics, log *logrus.Entry) *ChatService {
	if log == nil {
		log = logging.Discard()
	}
	return &ChatService{shaper: shaper, client: client, charts: chartService, metrics: metrics, log: log}
}

// Available reports whether a model client is configured
func (s *ChatService) Available() bool {
	return s.client != nil
}

// Complete shapes req, sends it to the model and extracts charts from the answer.
// A request that stays over the total budget is rejected with *BudgetExceededError
// before anything is sent.
func (s *ChatService) Complete(ctx context.Context, req models.CompletionRequest) (*models.CompletionResult, error) {
	if s.client == nil {
		return nil, ErrModelClientUnavailable
	}

	req.Context = withChartInstructions(req.Context)
	shaped, report, err := s.shaper.Shape(req)
	if err != nil {
		return nil, err
	}

	messages, err := BuildMessages(shaped)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	completion, err := s.client.Complete(ctx, messages)
	s.metrics.RecordCompletion(time.Since(start).Seconds(), completionErrorType(ctx, err))
	if err != nil {
		s.log.WithError(err).Error("❌ [CHAT] Model completion failed")
		return nil, fmt.Errorf("model completion failed: %w", err)
	}

	extraction := s.charts.Extract(ctx, completion.Text)
	logging.WithRequest(s.log, completion.RequestID).WithFields(logrus.Fields{
		"charts":         len(extraction.Charts),
		"dropped_charts": len(extraction.Dropped),
		"total_tokens":   report.TotalTokens,
	}).Info("✅ [CHAT] Completion processed")

	return &models.CompletionResult{
		RequestID:     completion.RequestID,
		Model:         completion.Model,
		Text:          extraction.Text,
		Charts:        extraction.Charts,
		DroppedCharts: len(extraction.Dropped),
		Shape:         report,
	}, nil
}

// BuildMessages turns a shaped request into chat messages: the context followed
// by one user message holding the prompt and, if present, the data as JSON.
func BuildMessages(req models.CompletionRequest) ([]models.CompletionMessage, error) {
	messages := make([]models.CompletionMessage, 0, len(req.Context)+1)
	messages = append(messages, req.Context...)

	var user strings.Builder
	user.WriteString(req.Prompt)
	if req.Data != nil {
		data, err := marshalNoEscape(req.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode data: %w", err)
		}
		if user.Len() > 0 {
			user.WriteString("\n\n")
		}
		user.WriteString("Data:\n```json\n")
		user.Write(data)
		user.WriteString("\n```")
	}
	messages = append(messages, models.CompletionMessage{Role: "user", Content: user.String()})
	return messages, nil
}

// withChartInstructions prepends the chart system prompt unless the context
// already has a system message. The input slice is not modified.
func withChartInstructions(msgs []models.CompletionMessage) []models.CompletionMessage {
	for _, msg := range msgs {
		if msg.Role == "system" {
			return msgs
		}
	}
	out := make([]models.CompletionMessage, 0, len(msgs)+1)
	out = append(out, models.CompletionMessage{Role: "system", Content: ChartInstructions})
	return append(out, msgs...)
}

func completionErrorType(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	if ctx.Err() != nil {
		return "canceled"
	}
	var me *ModelError
	if errors.As(err, &me) {
		switch {
		case me.StatusCode == 429:
			return "rate_limited"
		case me.StatusCode >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return "empty_response"
	}
	return "transport"
}
