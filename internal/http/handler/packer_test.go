package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shipstream/internal/dedupe"
	"shipstream/internal/logging"
	"shipstream/internal/model"
	"shipstream/internal/service"
	"shipstream/internal/service/mocks"
)

func newPackerApp(packer *mocks.MockPackerService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	h := NewPackerHandler(packer, dedupe.NewNoop(), logging.NewNop())
	RegisterPackerRoutes(app, h)
	return app
}

func TestPackerHandler_ProcessPackage(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ProcessPackage", mock.Anything, "uuid-1/pkg.json").
		Return(&service.PackageResult{
			ProcessingUUID: "uuid-1",
			ZipObject:      "uuid-1/pkg.zip",
			SignedURL:      "https://signed.example.com/x",
		}, nil)

	app := newPackerApp(packer)

	req := httptest.NewRequest("POST", "/process-package",
		strings.NewReader(`{"bucket":"shipments-packages","name":"uuid-1/pkg.json"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result service.PackageResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "uuid-1/pkg.zip", result.ZipObject)
}

func TestPackerHandler_ProcessPackage_DedupesByObject(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ProcessPackage", mock.Anything, "uuid-1/pkg.json").
		Return(&service.PackageResult{ProcessingUUID: "uuid-1"}, nil).Once()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	RegisterPackerRoutes(app, NewPackerHandler(packer, newOnceGuard(), logging.NewNop()))

	for _, body := range []string{
		`{"bucket":"shipments-packages","name":"uuid-1/pkg.json","id":"event-1"}`,
		`{"bucket":"shipments-packages","name":"uuid-1/pkg.json","id":"event-2"}`,
	} {
		req := httptest.NewRequest("POST", "/process-package", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	packer.AssertNumberOfCalls(t, "ProcessPackage", 1)
}

func TestPackerHandler_ProcessBatch(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ProcessBatch", mock.Anything, []string{"a.json", "b.json"}).
		Return(&service.BatchResult{Processed: 2})

	app := newPackerApp(packer)

	req := httptest.NewRequest("POST", "/process-batch",
		strings.NewReader(`{"objects":["a.json","b.json"]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPackerHandler_ProcessBatch_Empty(t *testing.T) {
	app := newPackerApp(new(mocks.MockPackerService))

	req := httptest.NewRequest("POST", "/process-batch", strings.NewReader(`{"objects":[]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPackerHandler_Status(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("Status", mock.Anything, "uuid-1").
		Return([]model.PackageProcessing{{ID: "p1", Status: model.StatusCompleted}}, nil)

	app := newPackerApp(packer)

	resp, err := app.Test(httptest.NewRequest("GET", "/processing-status/uuid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPackerHandler_Status_NotFound(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("Status", mock.Anything, "missing").Return(nil, nil)

	app := newPackerApp(packer)

	resp, err := app.Test(httptest.NewRequest("GET", "/processing-status/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPackerHandler_ScheduleCleanup(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ScheduleCleanup", mock.Anything, "uuid-1", 12*time.Hour).
		Return(&model.CleanupTask{ID: "task-1", ProcessingUUID: "uuid-1"}, nil)

	app := newPackerApp(packer)

	req := httptest.NewRequest("POST", "/schedule-cleanup",
		strings.NewReader(`{"processing_uuid":"uuid-1","after_hours":12}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestPackerHandler_ScheduleCleanup_DefaultsAfterHours(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ScheduleCleanup", mock.Anything, "uuid-1", 24*time.Hour).
		Return(&model.CleanupTask{ID: "task-1"}, nil)

	app := newPackerApp(packer)

	req := httptest.NewRequest("POST", "/schedule-cleanup",
		strings.NewReader(`{"processing_uuid":"uuid-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	packer.AssertExpectations(t)
}

func TestPackerHandler_ExecuteCleanup(t *testing.T) {
	packer := new(mocks.MockPackerService)
	packer.On("ExecuteCleanup", mock.Anything, "uuid-1").
		Return(&service.CleanupResult{ProcessingUUID: "uuid-1", ObjectsDeleted: 3}, nil)

	app := newPackerApp(packer)

	resp, err := app.Test(httptest.NewRequest("POST", "/cleanup/execute/uuid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result service.CleanupResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 3, result.ObjectsDeleted)
}
