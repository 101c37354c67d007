package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shipstream/internal/repository"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	RequestID string    `json:"request_id"`
	Error     errorBody `json:"error"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.Status(status).JSON(errorPayload{
		RequestID: requestID,
		Error:     errorBody{Code: code, Message: message},
	})
}

// ErrorHandler is the application-level fiber error handler. It maps
// known errors to their status codes and hides internals behind a
// generic message.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return writeError(c, fiberErr.Code, "http_error", fiberErr.Message)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "not_found", "record not found")
		}

		log.Error("unhandled request error",
			zap.String("path", c.Path()),
			zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
	}
}
