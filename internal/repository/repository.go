package repository

import (
	"context"
	"errors"
	"time"

	"shipstream/internal/model"
)

var ErrNotFound = errors.New("record not found")

// ImageRepository reads the shipment image catalog.
type ImageRepository interface {
	// PathsByShipmentIDs returns the stored image paths for each of the
	// given shipment ids. Shipments without images are absent from the map.
	PathsByShipmentIDs(ctx context.Context, shipmentIDs []string) (map[string][]string, error)
}

// ProcessingRepository tracks file and package processing state.
type ProcessingRepository interface {
	CreateFileProcessing(ctx context.Context, fp *model.FileProcessing) error
	GetFileProcessing(ctx context.Context, processingUUID string) (*model.FileProcessing, error)
	CompleteFileProcessing(ctx context.Context, processingUUID string, result []byte) error
	FailFileProcessing(ctx context.Context, processingUUID, errorMessage string) error
	MarkEmailSent(ctx context.Context, processingUUID string) error

	CreatePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error
	CompletePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error
	FailPackageProcessing(ctx context.Context, id, errorMessage string) error
	ListPackageProcessings(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error)
	CountPendingPackages(ctx context.Context, processingUUID string) (int, error)
}

// CleanupRepository schedules and settles deferred object cleanup.
type CleanupRepository interface {
	CreateCleanupTask(ctx context.Context, task *model.CleanupTask) error
	DueCleanupTasks(ctx context.Context, now time.Time, limit int) ([]model.CleanupTask, error)
	CompleteCleanupTask(ctx context.Context, id string, objectsDeleted int, bytesFreed int64) error
}
