package handlers

import (
	"net/http"

	"seatbook/utils"

	"github.com/gin-gonic/gin"
)

// HealthReporter exposes the last dependency check.
type HealthReporter interface {
	Status() utils.HealthStatus
}

type HealthHandler struct {
	Monitor HealthReporter
}

func NewHealthHandler(m HealthReporter) *HealthHandler {
	return &HealthHandler{Monitor: m}
}

// Health answers 200 while every dependency responds and 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.Monitor.Status()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "checks": status.Checks, "checkedAt": status.CheckedAt})
}
