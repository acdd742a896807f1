package http

import (
	"time"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Sessions  int       `json:"sessions"`
}

// HealthIndexAction handles the health check endpoint
func HealthIndexAction(ctx *Context) error {
	health := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	if ctx.Sessions == nil {
		health.Status = "degraded"
		ctx.Logger.Error("Session store unavailable")
	} else {
		health.Sessions = ctx.Sessions.Len()
	}

	return ctx.JSON(health)
}
