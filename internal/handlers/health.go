package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type rootResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status      string            `json:"status"`
	Uptime      float64           `json:"uptime"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
}

func (h HandlerSet) Root(c *gin.Context) {
	c.JSON(http.StatusOK, rootResponse{
		Status:    "ok",
		Message:   "TE Management API is running",
		Timestamp: time.Now().UTC(),
	})
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.probes))
	for _, probe := range h.probes {
		checks[probe.Name] = "ok"
		if err := probe.Check(ctx); err != nil {
			checks[probe.Name] = "error"
			status = "degraded"
			h.log.Error().Err(err).Str("probe", probe.Name).Msg("health probe failed")
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      status,
		Uptime:      time.Since(h.startedAt).Seconds(),
		Timestamp:   time.Now().UTC(),
		Environment: h.cfg.Environment,
		Checks:      checks,
	})
}
