package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shipstream/internal/model"
)

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) PathsByShipmentIDs(ctx context.Context, shipmentIDs []string) (map[string][]string, error) {
	args := m.Called(ctx, shipmentIDs)
	var paths map[string][]string
	if v := args.Get(0); v != nil {
		paths = v.(map[string][]string)
	}
	return paths, args.Error(1)
}

type MockProcessingRepository struct {
	mock.Mock
}

func (m *MockProcessingRepository) CreateFileProcessing(ctx context.Context, fp *model.FileProcessing) error {
	args := m.Called(ctx, fp)
	return args.Error(0)
}

func (m *MockProcessingRepository) GetFileProcessing(ctx context.Context, processingUUID string) (*model.FileProcessing, error) {
	args := m.Called(ctx, processingUUID)
	var fp *model.FileProcessing
	if v := args.Get(0); v != nil {
		fp = v.(*model.FileProcessing)
	}
	return fp, args.Error(1)
}

func (m *MockProcessingRepository) CompleteFileProcessing(ctx context.Context, processingUUID string, result []byte) error {
	args := m.Called(ctx, processingUUID, result)
	return args.Error(0)
}

func (m *MockProcessingRepository) FailFileProcessing(ctx context.Context, processingUUID, errorMessage string) error {
	args := m.Called(ctx, processingUUID, errorMessage)
	return args.Error(0)
}

func (m *MockProcessingRepository) MarkEmailSent(ctx context.Context, processingUUID string) error {
	args := m.Called(ctx, processingUUID)
	return args.Error(0)
}

func (m *MockProcessingRepository) CreatePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error {
	args := m.Called(ctx, pp)
	return args.Error(0)
}

func (m *MockProcessingRepository) CompletePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error {
	args := m.Called(ctx, pp)
	return args.Error(0)
}

func (m *MockProcessingRepository) FailPackageProcessing(ctx context.Context, id, errorMessage string) error {
	args := m.Called(ctx, id, errorMessage)
	return args.Error(0)
}

func (m *MockProcessingRepository) ListPackageProcessings(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error) {
	args := m.Called(ctx, processingUUID)
	var pps []model.PackageProcessing
	if v := args.Get(0); v != nil {
		pps = v.([]model.PackageProcessing)
	}
	return pps, args.Error(1)
}

func (m *MockProcessingRepository) CountPendingPackages(ctx context.Context, processingUUID string) (int, error) {
	args := m.Called(ctx, processingUUID)
	return args.Int(0), args.Error(1)
}

type MockCleanupRepository struct {
	mock.Mock
}

func (m *MockCleanupRepository) CreateCleanupTask(ctx context.Context, task *model.CleanupTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockCleanupRepository) DueCleanupTasks(ctx context.Context, now time.Time, limit int) ([]model.CleanupTask, error) {
	args := m.Called(ctx, now, limit)
	var tasks []model.CleanupTask
	if v := args.Get(0); v != nil {
		tasks = v.([]model.CleanupTask)
	}
	return tasks, args.Error(1)
}

func (m *MockCleanupRepository) CompleteCleanupTask(ctx context.Context, id string, objectsDeleted int, bytesFreed int64) error {
	args := m.Called(ctx, id, objectsDeleted, bytesFreed)
	return args.Error(0)
}
