package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shipstream/internal/config"
	"shipstream/internal/imagecheck"
	"shipstream/internal/model"
	"shipstream/internal/queue"
	"shipstream/internal/repository"
	"shipstream/internal/storage"
	"shipstream/internal/zipper"
)

// PackageResult summarizes one packed archive.
type PackageResult struct {
	ProcessingUUID  string              `json:"processing_uuid"`
	PackageID       string              `json:"package_id"`
	PackageObject   string              `json:"package_object"`
	ZipObject       string              `json:"zip_object"`
	ZipSize         int64               `json:"zip_size"`
	SignedURL       string              `json:"signed_url"`
	ExpiresAt       time.Time           `json:"expires_at"`
	ImagesProcessed int                 `json:"images_processed"`
	ImagesMissing   int                 `json:"images_missing"`
	ImagesFailed    int                 `json:"images_failed"`
	URLStats        model.URLCheckStats `json:"url_stats"`
}

// BatchResult summarizes a batch of packed archives.
type BatchResult struct {
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Results   []PackageResult `json:"results"`
	Errors    []string        `json:"errors,omitempty"`
}

// CleanupResult reports one executed cleanup.
type CleanupResult struct {
	ProcessingUUID string `json:"processing_uuid"`
	ObjectsDeleted int    `json:"objects_deleted"`
	BytesFreed     int64  `json:"bytes_freed"`
}

// PackerService turns packages into downloadable archives.
type PackerService interface {
	ProcessPackage(ctx context.Context, object string) (*PackageResult, error)
	ProcessBatch(ctx context.Context, objects []string) *BatchResult
	Status(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error)
	ScheduleCleanup(ctx context.Context, processingUUID string, after time.Duration) (*model.CleanupTask, error)
	ExecuteCleanup(ctx context.Context, processingUUID string) (*CleanupResult, error)
	ExecuteDueCleanups(ctx context.Context) (int, error)
}

type packerService struct {
	store       storage.ObjectStorage
	publisher   queue.Publisher
	processings repository.ProcessingRepository
	cleanups    repository.CleanupRepository
	checker     *imagecheck.Checker
	zipper      *zipper.Zipper
	buckets     config.BucketConfig
	cfg         config.ProcessingConfig
	log         *zap.Logger
	now         func() time.Time
}

// NewPacker wires the packing pipeline.
func NewPacker(
	store storage.ObjectStorage,
	publisher queue.Publisher,
	processings repository.ProcessingRepository,
	cleanups repository.CleanupRepository,
	buckets config.BucketConfig,
	cfg config.ProcessingConfig,
	log *zap.Logger,
) PackerService {
	return &packerService{
		store:       store,
		publisher:   publisher,
		processings: processings,
		cleanups:    cleanups,
		checker:     imagecheck.New(cfg.ImageCheckConcurrency, time.Duration(cfg.ImageCheckTimeoutSec)*time.Second),
		zipper:      zipper.New(store),
		buckets:     buckets,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

// ProcessPackage reads one package object, validates its image URLs,
// assembles the archive and publishes the completion email once the
// last package of a processing run is done.
func (s *packerService) ProcessPackage(ctx context.Context, object string) (*PackageResult, error) {
	log := s.log.With(zap.String("object", object))
	log.Info("processing package")

	pkg, err := s.readPackage(ctx, object)
	if err != nil {
		return nil, s.fail(ctx, "", object, "package_read_failed", err)
	}

	processingUUID := pkg.Metadata.ProcessingUUID
	packageID := pkg.Metadata.PackageUUID
	log = log.With(zap.String("processing_uuid", processingUUID))

	var stats model.URLCheckStats
	if s.cfg.ValidateImageURLs {
		checks, err := s.checker.CheckAll(ctx, pkg.Shipments)
		if err != nil {
			return nil, s.fail(ctx, packageID, object, "image_check_failed", err)
		}
		stats = imagecheck.Summarize(checks)
		if stats.Invalid > 0 {
			log.Warn("some image urls failed validation",
				zap.Int("invalid", stats.Invalid),
				zap.Int("total", stats.Total))
		}
	}

	entries := make([]zipper.Entry, 0)
	seen := make(map[string]struct{})
	for _, sh := range pkg.Shipments {
		for _, p := range sh.ImagePaths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			entries = append(entries, zipper.Entry{Bucket: s.buckets.Images, Key: p})
		}
	}

	zipKey := zipper.ArchiveObjectName(processingUUID, object)
	build, err := s.zipper.Build(ctx, pkg, entries, s.buckets.Zips, zipKey)
	if err != nil {
		return nil, s.fail(ctx, packageID, object, "zip_failed", err)
	}
	if len(build.Skipped) > 0 {
		log.Warn("missing images skipped",
			zap.Int("skipped", len(build.Skipped)),
			zap.Strings("keys", build.Skipped))
		if build.Added == 0 && len(entries) > 0 {
			return nil, s.fail(ctx, packageID, object, "zip_failed",
				fmt.Errorf("no images could be archived for %s", object))
		}
	}

	zipInfo, err := s.store.Stat(ctx, s.buckets.Zips, zipKey)
	if err != nil {
		return nil, s.fail(ctx, packageID, object, "zip_failed", err)
	}

	expiry := s.signedURLExpiry()
	signedURL, err := s.store.PresignGet(ctx, s.buckets.Zips, zipKey, expiry)
	if err != nil {
		return nil, s.fail(ctx, packageID, object, "signing_failed", err)
	}
	expiresAt := s.now().UTC().Add(expiry)

	pp := &model.PackageProcessing{
		ID:              packageID,
		ProcessingUUID:  processingUUID,
		ImagesProcessed: build.Added,
		ImagesFailed:    stats.Invalid + len(build.Skipped),
		ZipObject:       zipKey,
		ZipSize:         zipInfo.Size,
		SignedURL:       signedURL,
		ExpiresAt:       &expiresAt,
	}
	if err := s.processings.CompletePackageProcessing(ctx, pp); err != nil {
		return nil, s.fail(ctx, packageID, object, "record_failed", err)
	}

	if err := s.finishIfLast(ctx, processingUUID); err != nil {
		log.Error("failed to finalize processing run", zap.Error(err))
	}

	log.Info("package archived",
		zap.String("zip_object", zipKey),
		zap.Int64("zip_size", zipInfo.Size),
		zap.Int("images_processed", build.Added))

	return &PackageResult{
		ProcessingUUID:  processingUUID,
		PackageID:       packageID,
		PackageObject:   object,
		ZipObject:       zipKey,
		ZipSize:         zipInfo.Size,
		SignedURL:       signedURL,
		ExpiresAt:       expiresAt,
		ImagesProcessed: build.Added,
		ImagesMissing:   len(build.Skipped),
		ImagesFailed:    stats.Invalid,
		URLStats:        stats,
	}, nil
}

// ProcessBatch packs the given package objects with bounded parallelism.
// Per-object failures are collected, not fatal to the batch.
func (s *packerService) ProcessBatch(ctx context.Context, objects []string) *BatchResult {
	results := make([]*PackageResult, len(objects))
	failures := make([]error, len(objects))

	limit := s.cfg.BatchConcurrency
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, object := range objects {
		g.Go(func() error {
			results[i], failures[i] = s.ProcessPackage(ctx, object)
			return nil
		})
	}
	g.Wait()

	batch := &BatchResult{}
	for i, object := range objects {
		if failures[i] != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %s", object, failures[i]))
			continue
		}
		batch.Processed++
		batch.Results = append(batch.Results, *results[i])
	}
	return batch
}

func (s *packerService) Status(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error) {
	return s.processings.ListPackageProcessings(ctx, processingUUID)
}

// ScheduleCleanup registers deferred removal of a run's archives.
func (s *packerService) ScheduleCleanup(ctx context.Context, processingUUID string, after time.Duration) (*model.CleanupTask, error) {
	task := &model.CleanupTask{
		ID:             uuid.New().String(),
		ProcessingUUID: processingUUID,
		Bucket:         s.buckets.Zips,
		Prefix:         processingUUID + "/",
		RunAfter:       s.now().UTC().Add(after),
	}
	if err := s.cleanups.CreateCleanupTask(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info("cleanup scheduled",
		zap.String("processing_uuid", processingUUID),
		zap.Time("run_after", task.RunAfter))
	return task, nil
}

// ExecuteCleanup removes a run's archives and package objects now.
func (s *packerService) ExecuteCleanup(ctx context.Context, processingUUID string) (*CleanupResult, error) {
	result := &CleanupResult{ProcessingUUID: processingUUID}

	for _, bucket := range []string{s.buckets.Zips, s.buckets.Packages} {
		deleted, freed, err := s.deletePrefix(ctx, bucket, processingUUID+"/")
		if err != nil {
			return nil, err
		}
		result.ObjectsDeleted += deleted
		result.BytesFreed += freed
	}

	s.log.Info("cleanup executed",
		zap.String("processing_uuid", processingUUID),
		zap.Int("objects_deleted", result.ObjectsDeleted),
		zap.Int64("bytes_freed", result.BytesFreed))
	return result, nil
}

// ExecuteDueCleanups settles every cleanup task whose deadline passed.
func (s *packerService) ExecuteDueCleanups(ctx context.Context) (int, error) {
	tasks, err := s.cleanups.DueCleanupTasks(ctx, s.now().UTC(), 50)
	if err != nil {
		return 0, err
	}

	executed := 0
	for _, task := range tasks {
		deleted, freed, err := s.deletePrefix(ctx, task.Bucket, task.Prefix)
		if err != nil {
			s.log.Error("cleanup task failed",
				zap.String("task_id", task.ID),
				zap.Error(err))
			continue
		}
		if err := s.cleanups.CompleteCleanupTask(ctx, task.ID, deleted, freed); err != nil {
			s.log.Error("failed to settle cleanup task",
				zap.String("task_id", task.ID),
				zap.Error(err))
			continue
		}
		executed++
	}

	return executed, nil
}

func (s *packerService) deletePrefix(ctx context.Context, bucket, prefix string) (int, int64, error) {
	objects, err := s.store.List(ctx, bucket, prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
	}

	deleted := 0
	var freed int64
	for _, obj := range objects {
		if err := s.store.Delete(ctx, bucket, obj.Key); err != nil {
			return deleted, freed, fmt.Errorf("failed to delete %s/%s: %w", bucket, obj.Key, err)
		}
		deleted++
		freed += obj.Size
	}
	return deleted, freed, nil
}

// finishIfLast completes the processing run and requests the completion
// email once no pending packages remain.
func (s *packerService) finishIfLast(ctx context.Context, processingUUID string) error {
	pending, err := s.processings.CountPendingPackages(ctx, processingUUID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	fp, err := s.processings.GetFileProcessing(ctx, processingUUID)
	if err != nil {
		return err
	}
	if fp.Status != model.StatusPending {
		return nil
	}

	packages, err := s.processings.ListPackageProcessings(ctx, processingUUID)
	if err != nil {
		return err
	}

	summary := map[string]any{
		"total_packages": len(packages),
		"packages":       packages,
	}
	result, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	if err := s.processings.CompleteFileProcessing(ctx, processingUUID, result); err != nil {
		return err
	}

	if _, err := s.ScheduleCleanup(ctx, processingUUID, time.Duration(s.cfg.CleanupAfterHours)*time.Hour); err != nil {
		s.log.Error("failed to schedule cleanup", zap.Error(err))
	}

	event := EmailEvent{
		Kind:           EmailKindCompletion,
		ProcessingUUID: processingUUID,
		OriginalFile:   fp.OriginalFile,
	}
	if _, err := s.publisher.Publish(ctx, queue.TopicEmailNotifications, event, nil); err != nil {
		return fmt.Errorf("failed to publish completion email event: %w", err)
	}

	return nil
}

func (s *packerService) readPackage(ctx context.Context, object string) (*model.Package, error) {
	obj, _, err := s.store.Get(ctx, s.buckets.Packages, object)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var pkg model.Package
	if err := json.NewDecoder(obj).Decode(&pkg); err != nil {
		return nil, fmt.Errorf("failed to decode package %s: %w", object, err)
	}
	if pkg.Metadata.ProcessingUUID == "" || pkg.Metadata.PackageUUID == "" {
		return nil, fmt.Errorf("package %s is missing metadata", object)
	}
	return &pkg, nil
}

// signedURLExpiry clamps the configured expiry to the 1 to 24 hour range.
func (s *packerService) signedURLExpiry() time.Duration {
	hours := s.cfg.SignedURLExpiryHours
	if hours < 1 {
		hours = 1
	}
	if hours > 24 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func (s *packerService) fail(ctx context.Context, packageID, object, code string, cause error) error {
	s.log.Error("packing failed",
		zap.String("object", object),
		zap.String("error_code", code),
		zap.Error(cause))

	if packageID != "" {
		if err := s.processings.FailPackageProcessing(ctx, packageID, cause.Error()); err != nil {
			s.log.Error("failed to record package failure", zap.Error(err))
		}
	}

	errEvent := ErrorEvent{
		Stage:   "packing",
		Code:    code,
		Message: cause.Error(),
		Object:  object,
	}
	if _, err := s.publisher.Publish(ctx, queue.TopicProcessingErrors, errEvent, nil); err != nil {
		s.log.Error("failed to publish error event", zap.Error(err))
	}

	return fmt.Errorf("%s: %w", code, cause)
}
