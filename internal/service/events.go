package service

// PackageReadyEvent announces one uploaded package to the packer.
type PackageReadyEvent struct {
	ProcessingUUID string `json:"processing_uuid"`
	PackageID      string `json:"package_id"`
	Bucket         string `json:"bucket"`
	Object         string `json:"object"`
	Part           int    `json:"part"`
	TotalParts     int    `json:"total_parts"`
}

// Kinds of email events.
const (
	EmailKindCompletion = "completion"
	EmailKindFailure    = "failure"
)

// EmailEvent asks the notifier to send a status email.
type EmailEvent struct {
	Kind           string `json:"kind"`
	ProcessingUUID string `json:"processing_uuid"`
	OriginalFile   string `json:"original_file"`
	Stage          string `json:"stage,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// ErrorEvent records a processing failure on the errors topic.
type ErrorEvent struct {
	ProcessingUUID string `json:"processing_uuid,omitempty"`
	Stage          string `json:"stage"`
	Code           string `json:"code"`
	Message        string `json:"message"`
	Object         string `json:"object,omitempty"`
}
