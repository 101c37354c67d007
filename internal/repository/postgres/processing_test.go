package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipstream/internal/model"
	"shipstream/internal/repository"
)

const testUUID = "11111111-2222-3333-4444-555555555555"

func newMockDB(t *testing.T) (*processingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &processingRepository{db: db}, mock
}

func TestCreateFileProcessing(t *testing.T) {
	repo, mock := newMockDB(t)
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO file_processings").
		WithArgs(testUUID, "incoming/shipments.json", 250, 3, model.StatusPending, started).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateFileProcessing(context.Background(), &model.FileProcessing{
		ProcessingUUID: testUUID,
		OriginalFile:   "incoming/shipments.json",
		TotalShipments: 250,
		TotalPackages:  3,
		Status:         model.StatusPending,
		StartedAt:      started,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileProcessing(t *testing.T) {
	repo, mock := newMockDB(t)
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)

	rows := sqlmock.NewRows([]string{
		"processing_uuid", "original_file", "total_shipments", "total_packages",
		"status", "result", "error_message", "email_sent", "started_at", "finished_at",
	}).AddRow(testUUID, "incoming/shipments.json", 250, 3,
		model.StatusCompleted, `{"packages":3}`, nil, true, started, finished)

	mock.ExpectQuery("SELECT processing_uuid, original_file").
		WithArgs(testUUID).
		WillReturnRows(rows)

	fp, err := repo.GetFileProcessing(context.Background(), testUUID)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, fp.Status)
	assert.JSONEq(t, `{"packages":3}`, string(fp.Result))
	assert.True(t, fp.EmailSent)
	require.NotNil(t, fp.FinishedAt)
	assert.Equal(t, finished, *fp.FinishedAt)
}

func TestGetFileProcessing_NotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery("SELECT processing_uuid, original_file").
		WithArgs(testUUID).
		WillReturnRows(sqlmock.NewRows([]string{"processing_uuid"}))

	_, err := repo.GetFileProcessing(context.Background(), testUUID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompleteFileProcessing(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec("UPDATE file_processings").
		WithArgs(testUUID, model.StatusCompleted, []byte(`{"ok":true}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CompleteFileProcessing(context.Background(), testUUID, []byte(`{"ok":true}`))
	assert.NoError(t, err)
}

func TestFailFileProcessing_NotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec("UPDATE file_processings").
		WithArgs(testUUID, model.StatusFailed, "boom").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.FailFileProcessing(context.Background(), testUUID, "boom")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkEmailSent(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec("UPDATE file_processings SET email_sent").
		WithArgs(testUUID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkEmailSent(context.Background(), testUUID))
}

func TestCreatePackageProcessing(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO package_processings").
		WithArgs("pkg-id", testUUID, "shipments_part_1_of_3.json",
			testUUID+"/shipments_part_1_of_3.json", model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreatePackageProcessing(context.Background(), &model.PackageProcessing{
		ID:             "pkg-id",
		ProcessingUUID: testUUID,
		PackageName:    "shipments_part_1_of_3.json",
		PackageObject:  testUUID + "/shipments_part_1_of_3.json",
		Status:         model.StatusPending,
	})
	assert.NoError(t, err)
}

func TestCompletePackageProcessing(t *testing.T) {
	repo, mock := newMockDB(t)
	expires := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE package_processings").
		WithArgs("pkg-id", model.StatusCompleted, 98, 2,
			testUUID+"/shipments_part_1_of_3.zip", int64(1024), "https://signed.example.com/x", &expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CompletePackageProcessing(context.Background(), &model.PackageProcessing{
		ID:              "pkg-id",
		ImagesProcessed: 98,
		ImagesFailed:    2,
		ZipObject:       testUUID + "/shipments_part_1_of_3.zip",
		ZipSize:         1024,
		SignedURL:       "https://signed.example.com/x",
		ExpiresAt:       &expires,
	})
	assert.NoError(t, err)
}

func TestListPackageProcessings(t *testing.T) {
	repo, mock := newMockDB(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "processing_uuid", "package_name", "package_object", "status",
		"images_processed", "images_failed", "zip_object", "zip_size", "signed_url",
		"expires_at", "error_message", "created_at", "updated_at",
	}).
		AddRow("p1", testUUID, "a.json", testUUID+"/a.json", model.StatusCompleted,
			10, 0, testUUID+"/a.zip", int64(2048), "https://signed.example.com/a", now, nil, now, now).
		AddRow("p2", testUUID, "b.json", testUUID+"/b.json", model.StatusFailed,
			0, 0, nil, nil, nil, nil, "zip failed", now, now)

	mock.ExpectQuery("SELECT id, processing_uuid, package_name").
		WithArgs(testUUID).
		WillReturnRows(rows)

	pps, err := repo.ListPackageProcessings(context.Background(), testUUID)
	require.NoError(t, err)
	require.Len(t, pps, 2)

	assert.Equal(t, model.StatusCompleted, pps[0].Status)
	assert.Equal(t, int64(2048), pps[0].ZipSize)
	require.NotNil(t, pps[0].ExpiresAt)

	assert.Equal(t, model.StatusFailed, pps[1].Status)
	assert.Equal(t, "zip failed", pps[1].ErrorMessage)
	assert.Nil(t, pps[1].ExpiresAt)
}

func TestCountPendingPackages(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery("SELECT count").
		WithArgs(testUUID, model.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountPendingPackages(context.Background(), testUUID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCleanupTasks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCleanupRepository(db)

	runAfter := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO cleanup_tasks").
		WithArgs("task-1", testUUID, "shipments-zips", testUUID+"/", runAfter).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.CreateCleanupTask(context.Background(), &model.CleanupTask{
		ID:             "task-1",
		ProcessingUUID: testUUID,
		Bucket:         "shipments-zips",
		Prefix:         testUUID + "/",
		RunAfter:       runAfter,
	})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "processing_uuid", "bucket", "prefix", "run_after",
		"objects_deleted", "bytes_freed", "created_at",
	}).AddRow("task-1", testUUID, "shipments-zips", testUUID+"/", runAfter, 0, int64(0), runAfter.Add(-24*time.Hour))

	mock.ExpectQuery("SELECT id, processing_uuid, bucket").
		WithArgs(runAfter, 10).
		WillReturnRows(rows)

	tasks, err := repo.DueCleanupTasks(context.Background(), runAfter, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "shipments-zips", tasks[0].Bucket)

	mock.ExpectExec("UPDATE cleanup_tasks").
		WithArgs("task-1", 5, int64(123456)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.CompleteCleanupTask(context.Background(), "task-1", 5, 123456))
	assert.NoError(t, mock.ExpectationsWereMet())
}
