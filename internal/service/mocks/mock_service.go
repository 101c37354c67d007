package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shipstream/internal/model"
	"shipstream/internal/service"
)

type MockDivisionService struct {
	mock.Mock
}

func (m *MockDivisionService) ProcessFile(ctx context.Context, object string) (*service.DivisionResult, error) {
	args := m.Called(ctx, object)
	var result *service.DivisionResult
	if v := args.Get(0); v != nil {
		result = v.(*service.DivisionResult)
	}
	return result, args.Error(1)
}

func (m *MockDivisionService) Status(ctx context.Context, processingUUID string) (*model.FileProcessing, error) {
	args := m.Called(ctx, processingUUID)
	var fp *model.FileProcessing
	if v := args.Get(0); v != nil {
		fp = v.(*model.FileProcessing)
	}
	return fp, args.Error(1)
}

type MockPackerService struct {
	mock.Mock
}

func (m *MockPackerService) ProcessPackage(ctx context.Context, object string) (*service.PackageResult, error) {
	args := m.Called(ctx, object)
	var result *service.PackageResult
	if v := args.Get(0); v != nil {
		result = v.(*service.PackageResult)
	}
	return result, args.Error(1)
}

func (m *MockPackerService) ProcessBatch(ctx context.Context, objects []string) *service.BatchResult {
	args := m.Called(ctx, objects)
	return args.Get(0).(*service.BatchResult)
}

func (m *MockPackerService) Status(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error) {
	args := m.Called(ctx, processingUUID)
	var pps []model.PackageProcessing
	if v := args.Get(0); v != nil {
		pps = v.([]model.PackageProcessing)
	}
	return pps, args.Error(1)
}

func (m *MockPackerService) ScheduleCleanup(ctx context.Context, processingUUID string, after time.Duration) (*model.CleanupTask, error) {
	args := m.Called(ctx, processingUUID, after)
	var task *model.CleanupTask
	if v := args.Get(0); v != nil {
		task = v.(*model.CleanupTask)
	}
	return task, args.Error(1)
}

func (m *MockPackerService) ExecuteCleanup(ctx context.Context, processingUUID string) (*service.CleanupResult, error) {
	args := m.Called(ctx, processingUUID)
	var result *service.CleanupResult
	if v := args.Get(0); v != nil {
		result = v.(*service.CleanupResult)
	}
	return result, args.Error(1)
}

func (m *MockPackerService) ExecuteDueCleanups(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockNotifierService struct {
	mock.Mock
}

func (m *MockNotifierService) Notify(ctx context.Context, event service.EmailEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifierService) NotifyError(ctx context.Context, event service.ErrorEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
