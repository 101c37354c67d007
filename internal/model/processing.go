package model

import "time"

// Processing statuses shared by file and package records.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// FileProcessing tracks one division run of an uploaded shipment file.
type FileProcessing struct {
	ProcessingUUID string     `json:"processing_uuid"`
	OriginalFile   string     `json:"original_file"`
	TotalShipments int        `json:"total_shipments"`
	TotalPackages  int        `json:"total_packages"`
	Status         string     `json:"status"`
	Result         []byte     `json:"result,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	EmailSent      bool       `json:"email_sent"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// PackageProcessing tracks the packaging of a single split part:
// image download, ZIP creation and signed URL generation.
type PackageProcessing struct {
	ID              string     `json:"id"`
	ProcessingUUID  string     `json:"processing_uuid"`
	PackageName     string     `json:"package_name"`
	PackageObject   string     `json:"package_object"`
	Status          string     `json:"status"`
	ImagesProcessed int        `json:"images_processed"`
	ImagesFailed    int        `json:"images_failed"`
	ZipObject       string     `json:"zip_object,omitempty"`
	ZipSize         int64      `json:"zip_size,omitempty"`
	SignedURL       string     `json:"signed_url,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CleanupTask schedules the removal of temporary ZIP objects under a
// bucket prefix once RunAfter has passed.
type CleanupTask struct {
	ID             string     `json:"id"`
	ProcessingUUID string     `json:"processing_uuid"`
	Bucket         string     `json:"bucket"`
	Prefix         string     `json:"prefix"`
	RunAfter       time.Time  `json:"run_after"`
	DoneAt         *time.Time `json:"done_at,omitempty"`
	ObjectsDeleted int        `json:"objects_deleted"`
	BytesFreed     int64      `json:"bytes_freed"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ImageRecord is a row from the shipment_images lookup table.
type ImageRecord struct {
	ID         int64      `json:"id"`
	ShipmentID string     `json:"shipment_id"`
	Path       string     `json:"path"`
	Module     string     `json:"module"`
	Dispatch   bool       `json:"dispatch"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}
