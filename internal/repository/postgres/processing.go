package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shipstream/internal/model"
	"shipstream/internal/repository"
)

type processingRepository struct {
	db *sql.DB
}

// NewProcessingRepository builds the Postgres-backed processing tracker.
func NewProcessingRepository(db *sql.DB) repository.ProcessingRepository {
	return &processingRepository{db: db}
}

func (r *processingRepository) CreateFileProcessing(ctx context.Context, fp *model.FileProcessing) error {
	query := `INSERT INTO file_processings
		(processing_uuid, original_file, total_shipments, total_packages, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		fp.ProcessingUUID, fp.OriginalFile, fp.TotalShipments, fp.TotalPackages,
		fp.Status, fp.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create file processing %s: %w", fp.ProcessingUUID, err)
	}
	return nil
}

func (r *processingRepository) GetFileProcessing(ctx context.Context, processingUUID string) (*model.FileProcessing, error) {
	query := `SELECT processing_uuid, original_file, total_shipments, total_packages,
		status, result, error_message, email_sent, started_at, finished_at
		FROM file_processings WHERE processing_uuid = $1`

	var (
		fp       model.FileProcessing
		result   sql.NullString
		errMsg   sql.NullString
		finished sql.NullTime
	)
	row := r.db.QueryRowContext(ctx, query, processingUUID)
	err := row.Scan(&fp.ProcessingUUID, &fp.OriginalFile, &fp.TotalShipments, &fp.TotalPackages,
		&fp.Status, &result, &errMsg, &fp.EmailSent, &fp.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file processing %s: %w", processingUUID, err)
	}

	if result.Valid {
		fp.Result = []byte(result.String)
	}
	fp.ErrorMessage = errMsg.String
	if finished.Valid {
		fp.FinishedAt = &finished.Time
	}
	return &fp, nil
}

func (r *processingRepository) CompleteFileProcessing(ctx context.Context, processingUUID string, result []byte) error {
	query := `UPDATE file_processings
		SET status = $2, result = $3, finished_at = now()
		WHERE processing_uuid = $1`
	return r.execOne(ctx, query, "file processing", processingUUID,
		processingUUID, model.StatusCompleted, result)
}

func (r *processingRepository) FailFileProcessing(ctx context.Context, processingUUID, errorMessage string) error {
	query := `UPDATE file_processings
		SET status = $2, error_message = $3, finished_at = now()
		WHERE processing_uuid = $1`
	return r.execOne(ctx, query, "file processing", processingUUID,
		processingUUID, model.StatusFailed, errorMessage)
}

func (r *processingRepository) MarkEmailSent(ctx context.Context, processingUUID string) error {
	query := `UPDATE file_processings SET email_sent = true WHERE processing_uuid = $1`
	return r.execOne(ctx, query, "file processing", processingUUID, processingUUID)
}

func (r *processingRepository) CreatePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error {
	query := `INSERT INTO package_processings
		(id, processing_uuid, package_name, package_object, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (processing_uuid, package_name) DO UPDATE
		SET status = EXCLUDED.status, updated_at = now()`

	_, err := r.db.ExecContext(ctx, query,
		pp.ID, pp.ProcessingUUID, pp.PackageName, pp.PackageObject, pp.Status)
	if err != nil {
		return fmt.Errorf("failed to create package processing %s: %w", pp.PackageName, err)
	}
	return nil
}

func (r *processingRepository) CompletePackageProcessing(ctx context.Context, pp *model.PackageProcessing) error {
	query := `UPDATE package_processings
		SET status = $2, images_processed = $3, images_failed = $4,
			zip_object = $5, zip_size = $6, signed_url = $7, expires_at = $8,
			updated_at = now()
		WHERE id = $1`
	return r.execOne(ctx, query, "package processing", pp.ID,
		pp.ID, model.StatusCompleted, pp.ImagesProcessed, pp.ImagesFailed,
		pp.ZipObject, pp.ZipSize, pp.SignedURL, pp.ExpiresAt)
}

func (r *processingRepository) FailPackageProcessing(ctx context.Context, id, errorMessage string) error {
	query := `UPDATE package_processings
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`
	return r.execOne(ctx, query, "package processing", id,
		id, model.StatusFailed, errorMessage)
}

func (r *processingRepository) ListPackageProcessings(ctx context.Context, processingUUID string) ([]model.PackageProcessing, error) {
	query := `SELECT id, processing_uuid, package_name, package_object, status,
		images_processed, images_failed, zip_object, zip_size, signed_url,
		expires_at, error_message, created_at, updated_at
		FROM package_processings
		WHERE processing_uuid = $1
		ORDER BY package_name`

	rows, err := r.db.QueryContext(ctx, query, processingUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to list package processings for %s: %w", processingUUID, err)
	}
	defer rows.Close()

	var pps []model.PackageProcessing
	for rows.Next() {
		var (
			pp        model.PackageProcessing
			zipObject sql.NullString
			zipSize   sql.NullInt64
			signedURL sql.NullString
			expiresAt sql.NullTime
			errMsg    sql.NullString
		)
		err := rows.Scan(&pp.ID, &pp.ProcessingUUID, &pp.PackageName, &pp.PackageObject, &pp.Status,
			&pp.ImagesProcessed, &pp.ImagesFailed, &zipObject, &zipSize, &signedURL,
			&expiresAt, &errMsg, &pp.CreatedAt, &pp.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package processing row: %w", err)
		}

		pp.ZipObject = zipObject.String
		pp.ZipSize = zipSize.Int64
		pp.SignedURL = signedURL.String
		pp.ErrorMessage = errMsg.String
		if expiresAt.Valid {
			pp.ExpiresAt = &expiresAt.Time
		}
		pps = append(pps, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate package processings: %w", err)
	}

	return pps, nil
}

func (r *processingRepository) CountPendingPackages(ctx context.Context, processingUUID string) (int, error) {
	query := `SELECT count(*) FROM package_processings
		WHERE processing_uuid = $1 AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, processingUUID, model.StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending packages for %s: %w", processingUUID, err)
	}
	return count, nil
}

func (r *processingRepository) execOne(ctx context.Context, query, kind, id string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s %s: %w", kind, id, err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type cleanupRepository struct {
	db *sql.DB
}

// NewCleanupRepository builds the Postgres-backed cleanup scheduler state.
func NewCleanupRepository(db *sql.DB) repository.CleanupRepository {
	return &cleanupRepository{db: db}
}

func (r *cleanupRepository) CreateCleanupTask(ctx context.Context, task *model.CleanupTask) error {
	query := `INSERT INTO cleanup_tasks (id, processing_uuid, bucket, prefix, run_after)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.ProcessingUUID, task.Bucket, task.Prefix, task.RunAfter)
	if err != nil {
		return fmt.Errorf("failed to create cleanup task for %s: %w", task.ProcessingUUID, err)
	}
	return nil
}

func (r *cleanupRepository) DueCleanupTasks(ctx context.Context, now time.Time, limit int) ([]model.CleanupTask, error) {
	query := `SELECT id, processing_uuid, bucket, prefix, run_after, objects_deleted, bytes_freed, created_at
		FROM cleanup_tasks
		WHERE done_at IS NULL AND run_after <= $1
		ORDER BY run_after
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cleanup tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.CleanupTask
	for rows.Next() {
		var task model.CleanupTask
		err := rows.Scan(&task.ID, &task.ProcessingUUID, &task.Bucket, &task.Prefix,
			&task.RunAfter, &task.ObjectsDeleted, &task.BytesFreed, &task.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cleanup task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cleanup tasks: %w", err)
	}

	return tasks, nil
}

func (r *cleanupRepository) CompleteCleanupTask(ctx context.Context, id string, objectsDeleted int, bytesFreed int64) error {
	query := `UPDATE cleanup_tasks
		SET done_at = now(), objects_deleted = $2, bytes_freed = $3
		WHERE id = $1 AND done_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, objectsDeleted, bytesFreed)
	if err != nil {
		return fmt.Errorf("failed to complete cleanup task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for cleanup task %s: %w", id, err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
