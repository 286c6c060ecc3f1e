package health

import (
	"context"
	"net/http"
	"time"

	"billhub-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness plus dependency reachability. The
// endpoint is public: it carries no data, only up/down.
type HealthHandler struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{pool: pool, redis: redisClient}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "up"}
	status := http.StatusOK

	if err := h.pool.Ping(ctx); err != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		checks["cache"] = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// Redis is optional; a down cache does not fail the check.
			checks["cache"] = "down"
		}
	}

	if status != http.StatusOK {
		response.Error(c, status, "Service degraded", nil)
		return
	}
	response.Success(c, http.StatusOK, "OK", checks)
}
