package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shipstream/internal/dedupe"
	"shipstream/internal/repository"
	"shipstream/internal/service"
	"shipstream/internal/split"
)

// DivisionHandler exposes the file splitting endpoints.
type DivisionHandler struct {
	division service.DivisionService
	guard    dedupe.Guard
	log      *zap.Logger
}

func NewDivisionHandler(division service.DivisionService, guard dedupe.Guard, log *zap.Logger) *DivisionHandler {
	return &DivisionHandler{division: division, guard: guard, log: log}
}

// ProcessFile handles an object notification for the pending bucket.
func (h *DivisionHandler) ProcessFile(c *fiber.Ctx) error {
	event, err := ParseStorageEvent(c.Body())
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_event", err.Error())
	}

	if !strings.HasSuffix(event.Object, ".json") {
		h.log.Info("skipping non-json object", zap.String("object", event.Object))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "skipped"})
	}

	first, err := h.guard.FirstSeen(c.UserContext(), "division:"+event.DedupeKey(), time.Hour)
	if err != nil {
		h.log.Warn("dedupe check failed, continuing", zap.Error(err))
	} else if !first {
		h.log.Info("duplicate event ignored",
			zap.String("object", event.Object),
			zap.String("event_id", event.EventID))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "duplicate"})
	}

	result, err := h.division.ProcessFile(c.UserContext(), event.Object)
	if err != nil {
		if errors.Is(err, split.ErrInvalidJSON) || errors.Is(err, split.ErrNoShipments) ||
			errors.Is(err, split.ErrMissingID) || errors.Is(err, split.ErrDuplicateID) {
			return writeError(c, fiber.StatusUnprocessableEntity, "invalid_file", err.Error())
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Status returns the state of one processing run.
func (h *DivisionHandler) Status(c *fiber.Ctx) error {
	processingUUID := c.Params("uuid")

	fp, err := h.division.Status(c.UserContext(), processingUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "not_found", "processing not found")
		}
		return err
	}

	return c.JSON(fp)
}
