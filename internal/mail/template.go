package mail

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// PackageLink is one downloadable archive in the completion email.
type PackageLink struct {
	Name      string
	SignedURL string
	SizeMB    float64
	ExpiresAt time.Time
}

// CompletionData feeds the processing complete template.
type CompletionData struct {
	ProcessingUUID  string
	OriginalFile    string
	TotalShipments  int
	TotalPackages   int
	ImagesProcessed int
	ImagesFailed    int
	FinishedAt      time.Time
	Packages        []PackageLink
}

// FailureData feeds the processing failed template.
type FailureData struct {
	ProcessingUUID string
	OriginalFile   string
	Stage          string
	ErrorCode      string
	ErrorMessage   string
	OccurredAt     time.Time
}

var completionTmpl = template.Must(template.New("completion").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #2e7d32;">Shipment file processed</h2>
  <p>The file <strong>{{.OriginalFile}}</strong> finished processing on {{.FinishedAt.Format "2006-01-02 15:04 MST"}}.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Processing ID</td><td><code>{{.ProcessingUUID}}</code></td></tr>
    <tr><td>Shipments</td><td>{{.TotalShipments}}</td></tr>
    <tr><td>Packages</td><td>{{.TotalPackages}}</td></tr>
    <tr><td>Images processed</td><td>{{.ImagesProcessed}}</td></tr>
    {{if gt .ImagesFailed 0}}<tr><td>Images failed</td><td style="color: #c62828;">{{.ImagesFailed}}</td></tr>{{end}}
  </table>
  {{if .Packages}}
  <h3>Downloads</h3>
  <table cellpadding="6" border="1" style="border-collapse: collapse; border-color: #ddd;">
    <tr><th>Package</th><th>Size</th><th>Link</th><th>Expires</th></tr>
    {{range .Packages}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{printf "%.1f" .SizeMB}} MB</td>
      <td><a href="{{.SignedURL}}">Download</a></td>
      <td>{{.ExpiresAt.Format "2006-01-02 15:04 MST"}}</td>
    </tr>
    {{end}}
  </table>
  <p style="color: #757575; font-size: 12px;">Download links expire at the times shown. Archives are removed automatically afterwards.</p>
  {{end}}
</body>
</html>
`))

var failureTmpl = template.Must(template.New("failure").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2 style="color: #c62828;">Shipment file processing failed</h2>
  <p>Processing of <strong>{{.OriginalFile}}</strong> failed on {{.OccurredAt.Format "2006-01-02 15:04 MST"}}.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Processing ID</td><td><code>{{.ProcessingUUID}}</code></td></tr>
    <tr><td>Stage</td><td>{{.Stage}}</td></tr>
    <tr><td>Error code</td><td>{{.ErrorCode}}</td></tr>
    <tr><td>Error</td><td>{{.ErrorMessage}}</td></tr>
  </table>
  <p style="color: #757575; font-size: 12px;">The file can be uploaded again once the cause is resolved.</p>
</body>
</html>
`))

// RenderCompletion renders the processing complete email body.
func RenderCompletion(data CompletionData) (string, error) {
	var b strings.Builder
	if err := completionTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render completion template: %w", err)
	}
	return b.String(), nil
}

// RenderFailure renders the processing failed email body.
func RenderFailure(data FailureData) (string, error) {
	var b strings.Builder
	if err := failureTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render failure template: %w", err)
	}
	return b.String(), nil
}

// CompletionSubject builds the subject line for a completion email.
func CompletionSubject(originalFile string) string {
	return fmt.Sprintf("Shipment file processed: %s", originalFile)
}

// FailureSubject builds the subject line for a failure email.
func FailureSubject(originalFile string) string {
	return fmt.Sprintf("Shipment file processing failed: %s", originalFile)
}
