package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"llmboundary/internal/logging"
	"llmboundary/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Completion is one answer from the model
type Completion struct {
	RequestID        string
	Model            string
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// ModelClient sends already-shaped messages to a model. Callers hold an explicit
// handle; nothing in the extraction or trimming pipeline depends on it.
type ModelClient interface {
	Complete(ctx context.Context, messages []models.CompletionMessage) (*Completion, error)
}

// OpenAIClientConfig configures an OpenAI-compatible chat completions client
type OpenAIClientConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// OpenAIClient calls POST {BaseURL}/chat/completions
type OpenAIClient struct {
	cfg        OpenAIClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cooldown   *cooldown
	log        *logrus.Entry
}

// NewOpenAIClient creates a client. A non-positive rate disables client-side limiting.
func NewOpenAIClient(cfg OpenAIClientConfig, log *logrus.Entry) *OpenAIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = logging.Discard()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		cooldown:   newCooldown(),
		log:        log,
	}
}

// Model returns the configured model name
func (c *OpenAIClient) Model() string {
	return c.cfg.Model
}

type chatCompletionRequest struct {
	Model    string                     `json:"model"`
	Messages []models.CompletionMessage `json:"messages"`
	Stream   bool                       `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends messages and returns the first choice. After a quota error the
// endpoint is not called again until its cooldown has passed.
func (c *OpenAIClient) Complete(ctx context.Context, messages []models.CompletionMessage) (*Completion, error) {
	requestID := uuid.New().String()
	log := logging.WithRequest(c.log, requestID)

	if rem := c.cooldown.remaining(); rem > 0 {
		return nil, &ModelError{
			StatusCode: http.StatusTooManyRequests,
			Message:    fmt.Sprintf("model endpoint cooling down for %s", rem.Round(time.Second)),
			RetryAfter: rem,
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqJSON, err := json.Marshal(chatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		modelErr := &ModelError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		if IsQuotaError(resp.StatusCode, string(body)) {
			modelErr.RetryAfter = CooldownDuration(resp.StatusCode, string(body), resp.Header.Get("Retry-After"))
			c.cooldown.start(modelErr.RetryAfter)
			log.WithField("cooldown", modelErr.RetryAfter.String()).Warn("⏸️  [MODEL] Quota error, cooling down")
		} else {
			log.WithField("status", resp.StatusCode).Warn("❌ [MODEL] API error")
		}
		return nil, modelErr
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	completion := &Completion{
		RequestID:        requestID,
		Model:            result.Model,
		Text:             result.Choices[0].Message.Content,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
	}
	if completion.Model == "" {
		completion.Model = c.cfg.Model
	}

	log.WithFields(logrus.Fields{
		"model":    completion.Model,
		"chars":    len(completion.Text),
		"duration": time.Since(start).String(),
	}).Info("📡 [MODEL] Completion received")
	return completion, nil
}

// errorMessage pulls error.message out of an OpenAI-style error body
func errorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}
