package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// RegisterCommonRoutes mounts the probe and metrics endpoints shared by
// every service.
func RegisterCommonRoutes(app *fiber.App, health *HealthHandler) {
	app.Get("/health", health.Health)
	app.Get("/healthz", health.Healthz)
	app.Get("/status", health.Status)

	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metrics(c.Context())
		return nil
	})
}

// RegisterDivisionRoutes mounts the division endpoints.
func RegisterDivisionRoutes(app *fiber.App, h *DivisionHandler) {
	app.Post("/process-file", h.ProcessFile)
	app.Get("/processing-status/:uuid", h.Status)
}

// RegisterPackerRoutes mounts the packer endpoints.
func RegisterPackerRoutes(app *fiber.App, h *PackerHandler) {
	app.Post("/process-package", h.ProcessPackage)
	app.Post("/process-batch", h.ProcessBatch)
	app.Get("/processing-status/:uuid", h.Status)
	app.Post("/schedule-cleanup", h.ScheduleCleanup)
	app.Post("/cleanup/execute/:uuid", h.ExecuteCleanup)
}

// RegisterNotifierRoutes mounts the notifier endpoints.
func RegisterNotifierRoutes(app *fiber.App, h *NotifierHandler) {
	app.Post("/send-completion-email", h.SendCompletionEmail)
}
