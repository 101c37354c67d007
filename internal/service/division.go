package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"shipstream/internal/config"
	"shipstream/internal/model"
	"shipstream/internal/queue"
	"shipstream/internal/repository"
	"shipstream/internal/split"
	"shipstream/internal/storage"
)

// DivisionResult summarizes a processed shipment file.
type DivisionResult struct {
	ProcessingUUID string   `json:"processing_uuid"`
	OriginalFile   string   `json:"original_file"`
	TotalShipments int      `json:"total_shipments"`
	TotalPackages  int      `json:"total_packages"`
	SplitRequired  bool     `json:"split_required"`
	PackageObjects []string `json:"package_objects"`
}

// DivisionService splits incoming shipment files into packages.
type DivisionService interface {
	ProcessFile(ctx context.Context, object string) (*DivisionResult, error)
	Status(ctx context.Context, processingUUID string) (*model.FileProcessing, error)
}

type divisionService struct {
	store       storage.ObjectStorage
	publisher   queue.Publisher
	images      repository.ImageRepository
	processings repository.ProcessingRepository
	splitter    *split.Splitter
	buckets     config.BucketConfig
	log         *zap.Logger
}

// NewDivision wires the division pipeline.
func NewDivision(
	store storage.ObjectStorage,
	publisher queue.Publisher,
	images repository.ImageRepository,
	processings repository.ProcessingRepository,
	buckets config.BucketConfig,
	processing config.ProcessingConfig,
	version string,
	log *zap.Logger,
) DivisionService {
	return &divisionService{
		store:       store,
		publisher:   publisher,
		images:      images,
		processings: processings,
		splitter:    split.New(processing.MaxShipmentsPerPackage, version),
		buckets:     buckets,
		log:         log,
	}
}

// ProcessFile reads a shipment file from the pending bucket, splits it
// into packages, uploads each package and announces it to the packer.
// The source object is removed once every package is safely stored.
func (s *divisionService) ProcessFile(ctx context.Context, object string) (*DivisionResult, error) {
	log := s.log.With(zap.String("object", object))
	log.Info("processing shipment file")

	obj, _, err := s.store.Get(ctx, s.buckets.Pending, object)
	if err != nil {
		return nil, s.fail(ctx, "", object, "file_read_failed", err)
	}
	data, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		return nil, s.fail(ctx, "", object, "file_read_failed", err)
	}

	file, err := split.Parse(data)
	if err != nil {
		return nil, s.fail(ctx, "", object, "invalid_file", err)
	}

	ids := make([]string, len(file.Shipments))
	for i, sh := range file.Shipments {
		ids[i] = sh.ID
	}
	paths, err := s.images.PathsByShipmentIDs(ctx, ids)
	if err != nil {
		return nil, s.fail(ctx, "", object, "image_lookup_failed", err)
	}
	split.Enrich(file.Shipments, paths)

	result, err := s.splitter.Split(file, object)
	if err != nil {
		return nil, s.fail(ctx, "", object, "split_failed", err)
	}

	log = log.With(zap.String("processing_uuid", result.ProcessingUUID))

	fp := &model.FileProcessing{
		ProcessingUUID: result.ProcessingUUID,
		OriginalFile:   object,
		TotalShipments: result.TotalShipments,
		TotalPackages:  len(result.Packages),
		Status:         model.StatusPending,
		StartedAt:      time.Now().UTC(),
	}
	if err := s.processings.CreateFileProcessing(ctx, fp); err != nil {
		return nil, s.fail(ctx, result.ProcessingUUID, object, "record_failed", err)
	}

	objects := make([]string, 0, len(result.Packages))
	for _, pkg := range result.Packages {
		key := split.PackageObjectName(result.ProcessingUUID, object, pkg.Metadata.Part, pkg.Metadata.TotalParts)

		body, err := json.Marshal(pkg)
		if err != nil {
			s.removeUploaded(ctx, objects)
			return nil, s.fail(ctx, result.ProcessingUUID, object, "package_encode_failed", err)
		}

		if _, err := s.store.Put(ctx, s.buckets.Packages, key, jsonReader(body), int64(len(body)), storage.PutOptions{
			ContentType: "application/json",
			Metadata: map[string]string{
				"processing-uuid": result.ProcessingUUID,
				"package-uuid":    pkg.Metadata.PackageUUID,
			},
		}); err != nil {
			s.removeUploaded(ctx, objects)
			return nil, s.fail(ctx, result.ProcessingUUID, object, "package_upload_failed", err)
		}
		objects = append(objects, key)

		if err := s.processings.CreatePackageProcessing(ctx, &model.PackageProcessing{
			ID:             pkg.Metadata.PackageUUID,
			ProcessingUUID: result.ProcessingUUID,
			PackageName:    packageName(key),
			PackageObject:  key,
			Status:         model.StatusPending,
		}); err != nil {
			s.removeUploaded(ctx, objects)
			return nil, s.fail(ctx, result.ProcessingUUID, object, "record_failed", err)
		}

		event := PackageReadyEvent{
			ProcessingUUID: result.ProcessingUUID,
			PackageID:      pkg.Metadata.PackageUUID,
			Bucket:         s.buckets.Packages,
			Object:         key,
			Part:           pkg.Metadata.Part,
			TotalParts:     pkg.Metadata.TotalParts,
		}
		if _, err := s.publisher.Publish(ctx, queue.TopicPackagesReady, event, map[string]string{
			"processing_uuid": result.ProcessingUUID,
		}); err != nil {
			s.removeUploaded(ctx, objects)
			return nil, s.fail(ctx, result.ProcessingUUID, object, "publish_failed", err)
		}
	}

	if err := s.store.Delete(ctx, s.buckets.Pending, object); err != nil {
		log.Warn("failed to remove source file", zap.Error(err))
	}

	log.Info("shipment file divided",
		zap.Int("total_shipments", result.TotalShipments),
		zap.Int("total_packages", len(result.Packages)),
		zap.Bool("split_required", result.SplitRequired))

	return &DivisionResult{
		ProcessingUUID: result.ProcessingUUID,
		OriginalFile:   object,
		TotalShipments: result.TotalShipments,
		TotalPackages:  len(result.Packages),
		SplitRequired:  result.SplitRequired,
		PackageObjects: objects,
	}, nil
}

// removeUploaded clears package objects left behind by a failed fan-out
// so a retried event starts from a clean prefix.
func (s *divisionService) removeUploaded(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, s.buckets.Packages, key); err != nil {
			s.log.Warn("failed to remove uploaded package",
				zap.String("object", key), zap.Error(err))
		}
	}
}

func (s *divisionService) Status(ctx context.Context, processingUUID string) (*model.FileProcessing, error) {
	return s.processings.GetFileProcessing(ctx, processingUUID)
}

// fail records the failure, raises an error event on the error topic
// and returns the original error wrapped with its code. The notifier
// consumes the error topic and mails the admin.
func (s *divisionService) fail(ctx context.Context, processingUUID, object, code string, cause error) error {
	s.log.Error("division failed",
		zap.String("object", object),
		zap.String("error_code", code),
		zap.Error(cause))

	if processingUUID != "" {
		if err := s.processings.FailFileProcessing(ctx, processingUUID, cause.Error()); err != nil {
			s.log.Error("failed to record failure", zap.Error(err))
		}
	}

	errEvent := ErrorEvent{
		ProcessingUUID: processingUUID,
		Stage:          "division",
		Code:           code,
		Message:        cause.Error(),
		Object:         object,
	}
	if _, err := s.publisher.Publish(ctx, queue.TopicProcessingErrors, errEvent, nil); err != nil {
		s.log.Error("failed to publish error event", zap.Error(err))
	}

	return fmt.Errorf("%s: %w", code, cause)
}
