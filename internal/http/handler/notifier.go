package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shipstream/internal/service"
)

// NotifierHandler exposes the email sending endpoint.
type NotifierHandler struct {
	notifier service.NotifierService
	log      *zap.Logger
}

func NewNotifierHandler(notifier service.NotifierService, log *zap.Logger) *NotifierHandler {
	return &NotifierHandler{notifier: notifier, log: log}
}

// SendCompletionEmail accepts an email event, either directly or
// wrapped in a push envelope, and dispatches it.
func (h *NotifierHandler) SendCompletionEmail(c *fiber.Ctx) error {
	body := c.Body()

	var push pushEnvelope
	if err := json.Unmarshal(body, &push); err == nil && len(push.Message.Data) > 0 {
		body = push.Message.Data
	}

	var event service.EmailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_event", "event payload is not valid JSON")
	}
	if event.Kind == "" {
		event.Kind = service.EmailKindCompletion
	}
	if event.ProcessingUUID == "" && event.Kind == service.EmailKindCompletion {
		return writeError(c, fiber.StatusBadRequest, "invalid_event", "processing_uuid is required")
	}

	if err := h.notifier.Notify(c.UserContext(), event); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":          "sent",
		"kind":            event.Kind,
		"processing_uuid": event.ProcessingUUID,
	})
}
