package model

import "time"

// ShipmentFile is the raw document uploaded to the pending bucket.
type ShipmentFile struct {
	Shipments []Shipment `json:"shipments"`
}

// Shipment is a single shipment record. ImageURL is the optional remote
// URL found in uploaded files; ImagePaths are the object paths resolved
// from the database during division.
type Shipment struct {
	ID         string   `json:"id"`
	ImageURL   string   `json:"image_url,omitempty"`
	ImagePaths []string `json:"image_paths,omitempty"`
	HasImages  bool     `json:"has_images"`
	ImageCount int      `json:"image_count"`
}

// PackageMetadata identifies one part of a split processing run.
// Parts are 1-indexed; TotalParts covers the whole run.
type PackageMetadata struct {
	ProcessingUUID     string    `json:"processing_uuid"`
	PackageUUID        string    `json:"package_uuid"`
	Part               int       `json:"part"`
	TotalParts         int       `json:"total_parts"`
	ShipmentRange      string    `json:"shipment_range"`
	ShipmentsInPackage int       `json:"shipments_in_package"`
	TotalShipments     int       `json:"total_shipments"`
	OriginalFile       string    `json:"original_file"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessorVersion   string    `json:"processor_version"`
	SplitRequired      bool      `json:"split_required"`
}

// ImageStats summarizes image coverage for the shipments in one package.
type ImageStats struct {
	TotalShipments       int            `json:"total_shipments"`
	WithImages           int            `json:"with_images"`
	WithoutImages        int            `json:"without_images"`
	TotalImages          int            `json:"total_images"`
	WithImagesPercent    float64        `json:"with_images_percent"`
	AvgImagesPerShipment float64        `json:"avg_images_per_shipment"`
	ImagesPerShipment    map[string]int `json:"images_per_shipment"`
}

// Package is one split part written to the packages bucket.
type Package struct {
	Shipments  []Shipment      `json:"shipments"`
	Metadata   PackageMetadata `json:"metadata"`
	ImageStats ImageStats      `json:"image_stats"`
}

// URLCheck is the result of validating one shipment image URL.
type URLCheck struct {
	ShipmentID    string `json:"shipment_id"`
	URL           string `json:"url"`
	Valid         bool   `json:"valid"`
	Error         string `json:"error,omitempty"`
	StatusCode    int    `json:"status_code,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
}

// URLCheckStats aggregates URL validation results, including a count per
// distinct error message.
type URLCheckStats struct {
	Total        int            `json:"total"`
	Valid        int            `json:"valid"`
	Invalid      int            `json:"invalid"`
	ValidPercent float64        `json:"valid_percent"`
	ErrorsByType map[string]int `json:"errors_by_type,omitempty"`
}
