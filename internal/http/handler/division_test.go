package handler

import (
	"context"
	"encoding/json"
	"io"
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
	"shipstream/internal/repository"
	"shipstream/internal/service"
	"shipstream/internal/service/mocks"
)

func newDivisionApp(division *mocks.MockDivisionService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	h := NewDivisionHandler(division, dedupe.NewNoop(), logging.NewNop())
	RegisterDivisionRoutes(app, h)
	return app
}

// onceGuard admits every key exactly once.
type onceGuard struct {
	seen map[string]struct{}
}

func newOnceGuard() *onceGuard {
	return &onceGuard{seen: make(map[string]struct{})}
}

func (g *onceGuard) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}

func (g *onceGuard) Close() error { return nil }

func TestDivisionHandler_ProcessFile(t *testing.T) {
	division := new(mocks.MockDivisionService)
	division.On("ProcessFile", mock.Anything, "incoming/f.json").
		Return(&service.DivisionResult{
			ProcessingUUID: "uuid-1",
			TotalShipments: 250,
			TotalPackages:  3,
			SplitRequired:  true,
		}, nil)

	app := newDivisionApp(division)

	req := httptest.NewRequest("POST", "/process-file",
		strings.NewReader(`{"bucket":"shipments-pending","name":"incoming/f.json"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result service.DivisionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "uuid-1", result.ProcessingUUID)
	assert.Equal(t, 3, result.TotalPackages)
	division.AssertExpectations(t)
}

func TestDivisionHandler_ProcessFile_DedupesByObject(t *testing.T) {
	division := new(mocks.MockDivisionService)
	division.On("ProcessFile", mock.Anything, "incoming/f.json").
		Return(&service.DivisionResult{ProcessingUUID: "uuid-1"}, nil).Once()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	RegisterDivisionRoutes(app, NewDivisionHandler(division, newOnceGuard(), logging.NewNop()))

	for i, body := range []string{
		`{"bucket":"shipments-pending","name":"incoming/f.json","id":"event-1"}`,
		`{"bucket":"shipments-pending","name":"incoming/f.json","id":"event-2"}`,
	} {
		req := httptest.NewRequest("POST", "/process-file", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		if i == 1 {
			assert.Equal(t, "duplicate", payload["status"])
		}
	}

	division.AssertExpectations(t)
	division.AssertNumberOfCalls(t, "ProcessFile", 1)
}

func TestDivisionHandler_ProcessFile_NewGenerationIsProcessed(t *testing.T) {
	division := new(mocks.MockDivisionService)
	division.On("ProcessFile", mock.Anything, "incoming/f.json").
		Return(&service.DivisionResult{ProcessingUUID: "uuid-1"}, nil).Twice()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	RegisterDivisionRoutes(app, NewDivisionHandler(division, newOnceGuard(), logging.NewNop()))

	for _, body := range []string{
		`{"bucket":"shipments-pending","name":"incoming/f.json","generation":"100"}`,
		`{"bucket":"shipments-pending","name":"incoming/f.json","generation":"101"}`,
	} {
		req := httptest.NewRequest("POST", "/process-file", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	division.AssertNumberOfCalls(t, "ProcessFile", 2)
}

func TestDivisionHandler_ProcessFile_SkipsNonJSON(t *testing.T) {
	division := new(mocks.MockDivisionService)
	app := newDivisionApp(division)

	req := httptest.NewRequest("POST", "/process-file",
		strings.NewReader(`{"bucket":"shipments-pending","name":"incoming/readme.txt"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "skipped", payload["status"])
	division.AssertNotCalled(t, "ProcessFile", mock.Anything, mock.Anything)
}

func TestDivisionHandler_ProcessFile_BadEvent(t *testing.T) {
	app := newDivisionApp(new(mocks.MockDivisionService))

	req := httptest.NewRequest("POST", "/process-file", strings.NewReader(`{"bucket":"b"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "invalid_event", payload.Error.Code)
}

func TestDivisionHandler_Status(t *testing.T) {
	division := new(mocks.MockDivisionService)
	division.On("Status", mock.Anything, "uuid-1").
		Return(&model.FileProcessing{ProcessingUUID: "uuid-1", Status: model.StatusCompleted}, nil)

	app := newDivisionApp(division)

	resp, err := app.Test(httptest.NewRequest("GET", "/processing-status/uuid-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var fp model.FileProcessing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fp))
	assert.Equal(t, model.StatusCompleted, fp.Status)
}

func TestDivisionHandler_Status_NotFound(t *testing.T) {
	division := new(mocks.MockDivisionService)
	division.On("Status", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	app := newDivisionApp(division)

	resp, err := app.Test(httptest.NewRequest("GET", "/processing-status/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
