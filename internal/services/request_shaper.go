package services

import (
	"fmt"
	"sort"

	"llmboundary/internal/config"
	"llmboundary/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RequestShaper prepares outbound completion requests so they fit the configured
// token budgets. It never sends anything; callers reject the request when Shape
// returns a BudgetExceededError.
type RequestShaper struct {
	budgets config.TokenBudgets
	log     *logrus.Entry
	metrics *Metrics
}

// NewRequestShaper creates a shaper for the given budgets. log and metrics may be nil.
func NewRequestShaper(budgets config.TokenBudgets, log *logrus.Entry, metrics *Metrics) *RequestShaper {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RequestShaper{budgets: budgets, log: log, metrics: metrics}
}

// Budgets returns the ceilings this shaper enforces
func (s *RequestShaper) Budgets() config.TokenBudgets {
	return s.budgets
}

// Shape trims data, context and prompt to their budgets and checks the total ceiling.
// The caller's request is not modified.
func (s *RequestShaper) Shape(req models.CompletionRequest) (models.CompletionRequest, *models.ShapeReport, error) {
	out := models.CompletionRequest{Prompt: req.Prompt}
	report := &models.ShapeReport{TotalTokenBudget: s.budgets.Total}

	if req.Data != nil {
		out.Data, report.DataTrimmed = s.shapeData(req.Data)
		report.DataTokens = EstimateValueTokens(out.Data)
	}

	out.Context, report.ContextDropped = s.shapeContext(req.Context)
	report.ContextTokens = EstimateMessagesTokens(out.Context)

	fit := FitPrompt(req.Prompt, s.budgets.Prompt)
	out.Prompt = fit.Text
	report.PromptTrimmed = fit.WasTrimmed
	report.PromptTokens = fit.TokenCount

	return out, report, s.finish(report, contextChanged(req.Context, out.Context))
}

// ShapeRequestBody shapes a raw JSON request body in place of its "data", "context"
// and "prompt" fields. Every other field (model, temperature, ...) is left untouched.
func (s *RequestShaper) ShapeRequestBody(body []byte) ([]byte, *models.ShapeReport, error) {
	if !gjson.ValidBytes(body) {
		return nil, nil, ErrInvalidRequestBody
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, nil, ErrInvalidRequestBody
	}

	out := append([]byte(nil), body...)
	report := &models.ShapeReport{TotalTokenBudget: s.budgets.Total}
	var err error

	if data := root.Get("data"); data.Exists() {
		decoded, decodeErr := DecodeOrdered([]byte(data.Raw))
		if decodeErr != nil {
			return nil, nil, fmt.Errorf("failed to decode data field: %w", decodeErr)
		}
		shaped, trimmed := s.shapeData(decoded)
		report.DataTrimmed = trimmed
		if trimmed {
			raw, marshalErr := marshalNoEscape(shaped)
			if marshalErr != nil {
				return nil, nil, fmt.Errorf("failed to encode trimmed data: %w", marshalErr)
			}
			if out, err = sjson.SetRawBytes(out, "data", raw); err != nil {
				return nil, nil, fmt.Errorf("failed to write trimmed data: %w", err)
			}
		}
		report.DataTokens = EstimateValueTokens(shaped)
	}

	contextTrimmed := false
	if ctx := root.Get("context"); ctx.IsArray() {
		var messages []models.CompletionMessage
		ctx.ForEach(func(_, msg gjson.Result) bool {
			messages = append(messages, models.CompletionMessage{
				Role:    msg.Get("role").String(),
				Content: msg.Get("content").String(),
			})
			return true
		})
		shaped, dropped := s.shapeContext(messages)
		report.ContextDropped = dropped
		report.ContextTokens = EstimateMessagesTokens(shaped)
		if contextChanged(messages, shaped) {
			contextTrimmed = true
			if out, err = sjson.SetBytes(out, "context", shaped); err != nil {
				return nil, nil, fmt.Errorf("failed to write shaped context: %w", err)
			}
		}
	}

	if prompt := root.Get("prompt"); prompt.Type == gjson.String {
		fit := FitPrompt(prompt.String(), s.budgets.Prompt)
		report.PromptTrimmed = fit.WasTrimmed
		report.PromptTokens = fit.TokenCount
		if fit.WasTrimmed {
			if out, err = sjson.SetBytes(out, "prompt", fit.Text); err != nil {
				return nil, nil, fmt.Errorf("failed to write fitted prompt: %w", err)
			}
		}
	}

	if err := s.finish(report, contextTrimmed); err != nil {
		return nil, report, err
	}
	return out, report, nil
}

func (s *RequestShaper) shapeData(data interface{}) (interface{}, bool) {
	before := EstimateValueTokens(data)
	if before <= s.budgets.Data {
		return data, false
	}
	shaped := TrimPayload(data, s.budgets.Data)
	s.log.WithFields(logrus.Fields{
		"before_tokens": before,
		"after_tokens":  EstimateValueTokens(shaped),
		"budget":        s.budgets.Data,
	}).Info("✂️  trimmed request data")
	return shaped, true
}

// shapeContext drops the oldest non-system messages until the context fits,
// always keeping the newest message. If that is not enough the largest remaining
// messages are cut with FitPrompt.
func (s *RequestShaper) shapeContext(messages []models.CompletionMessage) ([]models.CompletionMessage, int) {
	if len(messages) == 0 {
		return nil, 0
	}
	out := make([]models.CompletionMessage, len(messages))
	copy(out, messages)

	budget := s.budgets.Context
	dropped := 0
	for EstimateMessagesTokens(out) > budget {
		idx := -1
		for i := 0; i < len(out)-1; i++ {
			if out[i].Role != "system" {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		out = append(out[:idx], out[idx+1:]...)
		dropped++
	}

	if total := EstimateMessagesTokens(out); total > budget {
		order := make([]int, len(out))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return len(out[order[a]].Content) > len(out[order[b]].Content)
		})
		for _, i := range order {
			total = EstimateMessagesTokens(out)
			if total <= budget {
				break
			}
			own := EstimateTokens(out[i].Content)
			allowance := budget - (total - own)
			if allowance < 0 {
				allowance = 0
			}
			out[i].Content = FitPrompt(out[i].Content, allowance).Text
		}
	}

	if dropped > 0 {
		s.log.WithFields(logrus.Fields{
			"dropped": dropped,
			"kept":    len(out),
			"budget":  budget,
		}).Info("✂️  dropped old context messages")
	}
	return out, dropped
}

func (s *RequestShaper) finish(report *models.ShapeReport, contextTrimmed bool) error {
	report.TotalTokens = report.DataTokens + report.ContextTokens + report.PromptTokens
	rejected := report.TotalTokens > s.budgets.Total
	s.metrics.RecordShape(report.DataTrimmed, contextTrimmed, report.PromptTrimmed, report.TotalTokens, rejected)

	if rejected {
		s.log.WithFields(logrus.Fields{
			"estimated_tokens": report.TotalTokens,
			"ceiling":          s.budgets.Total,
		}).Warn("🚫 request still over budget after trimming")
		return &BudgetExceededError{Estimated: report.TotalTokens, Ceiling: s.budgets.Total}
	}
	return nil
}

func contextChanged(before, after []models.CompletionMessage) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}
