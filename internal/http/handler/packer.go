package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shipstream/internal/dedupe"
	"shipstream/internal/repository"
	"shipstream/internal/service"
)

// PackerHandler exposes the archive building endpoints.
type PackerHandler struct {
	packer service.PackerService
	guard  dedupe.Guard
	log    *zap.Logger
}

func NewPackerHandler(packer service.PackerService, guard dedupe.Guard, log *zap.Logger) *PackerHandler {
	return &PackerHandler{packer: packer, guard: guard, log: log}
}

// ProcessPackage handles an object notification for the packages bucket.
func (h *PackerHandler) ProcessPackage(c *fiber.Ctx) error {
	event, err := ParseStorageEvent(c.Body())
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_event", err.Error())
	}

	first, err := h.guard.FirstSeen(c.UserContext(), "packer:"+event.DedupeKey(), time.Hour)
	if err != nil {
		h.log.Warn("dedupe check failed, continuing", zap.Error(err))
	} else if !first {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "duplicate"})
	}

	result, err := h.packer.ProcessPackage(c.UserContext(), event.Object)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

type batchRequest struct {
	Objects []string `json:"objects"`
}

// ProcessBatch packs several package objects in one request.
func (h *PackerHandler) ProcessBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "body must be JSON")
	}
	if len(req.Objects) == 0 {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "objects list is empty")
	}

	return c.JSON(h.packer.ProcessBatch(c.UserContext(), req.Objects))
}

// Status lists the package states of one processing run.
func (h *PackerHandler) Status(c *fiber.Ctx) error {
	processingUUID := c.Params("uuid")

	packages, err := h.packer.Status(c.UserContext(), processingUUID)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		return writeError(c, fiber.StatusNotFound, "not_found", "processing not found")
	}

	return c.JSON(fiber.Map{
		"processing_uuid": processingUUID,
		"packages":        packages,
	})
}

type scheduleCleanupRequest struct {
	ProcessingUUID string `json:"processing_uuid"`
	AfterHours     int    `json:"after_hours"`
}

// ScheduleCleanup registers deferred removal of a run's objects.
func (h *PackerHandler) ScheduleCleanup(c *fiber.Ctx) error {
	var req scheduleCleanupRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "body must be JSON")
	}
	if req.ProcessingUUID == "" {
		return writeError(c, fiber.StatusBadRequest, "invalid_request", "processing_uuid is required")
	}
	if req.AfterHours <= 0 {
		req.AfterHours = 24
	}

	task, err := h.packer.ScheduleCleanup(c.UserContext(), req.ProcessingUUID,
		time.Duration(req.AfterHours)*time.Hour)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(task)
}

// ExecuteCleanup removes a run's objects immediately.
func (h *PackerHandler) ExecuteCleanup(c *fiber.Ctx) error {
	processingUUID := c.Params("uuid")

	result, err := h.packer.ExecuteCleanup(c.UserContext(), processingUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "not_found", "processing not found")
		}
		return err
	}

	return c.JSON(result)
}
