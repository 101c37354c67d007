package handler

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler serves the probe endpoints every service exposes.
type HealthHandler struct {
	db      *sql.DB
	service string
	version string
	started time.Time
}

func NewHealthHandler(db *sql.DB, service, version string) *HealthHandler {
	return &HealthHandler{db: db, service: service, version: version, started: time.Now()}
}

// Health reports basic liveness.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": h.service,
		"version": h.version,
	})
}

// Healthz is the kubelet-style liveness probe.
func (h *HealthHandler) Healthz(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// Status reports readiness including the database connection.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"
	code := fiber.StatusOK

	if h.db != nil {
		ctx, cancel := contextWithTimeout(c, 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status = "degraded"
			dbStatus = err.Error()
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":         status,
		"service":        h.service,
		"version":        h.version,
		"database":       dbStatus,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}
