package handlers

import (
	"time"

	"llmboundary/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	chat  *services.ChatService
	cache *services.RenderCache
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(chat *services.ChatService, cache *services.RenderCache, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{chat: chat, cache: cache, redis: redis}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "healthy"

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.Ping(c.UserContext()); err != nil {
			redisStatus = "unreachable"
			status = "degraded"
		} else {
			redisStatus = "ok"
		}
	}

	cacheEntries := 0
	if h.cache != nil {
		cacheEntries = h.cache.Len()
	}

	return c.JSON(fiber.Map{
		"status":        status,
		"model_client":  h.chat != nil && h.chat.Available(),
		"redis":         redisStatus,
		"cache_entries": cacheEntries,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}
