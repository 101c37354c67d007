// Package split divides a shipment file into packages of bounded size
// and computes the metadata that travels with each package.
package split

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"shipstream/internal/model"
)

var (
	ErrInvalidJSON  = errors.New("file is not valid JSON")
	ErrNoShipments  = errors.New("file contains no shipments")
	ErrMissingID    = errors.New("shipment is missing an id")
	ErrDuplicateID  = errors.New("duplicate shipment id")
	ErrInvalidLimit = errors.New("max shipments per package must be positive")
)

// packageNamespace seeds the deterministic package UUIDs. The same
// processing UUID and part number always map to the same package UUID,
// so a replayed split overwrites its previous output instead of
// duplicating it.
var packageNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Splitter carries the split settings.
type Splitter struct {
	MaxPerPackage int
	Version       string
	now           func() time.Time
	newUUID       func() uuid.UUID
}

// New returns a Splitter with the given package size limit.
func New(maxPerPackage int, version string) *Splitter {
	return &Splitter{
		MaxPerPackage: maxPerPackage,
		Version:       version,
		now:           time.Now,
		newUUID:       uuid.New,
	}
}

// Parse decodes and validates raw shipment file content.
func Parse(data []byte) (*model.ShipmentFile, error) {
	var file model.ShipmentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}
	if err := Validate(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks the structural invariants of a shipment file.
func Validate(file *model.ShipmentFile) error {
	if len(file.Shipments) == 0 {
		return ErrNoShipments
	}

	seen := make(map[string]struct{}, len(file.Shipments))
	for i, s := range file.Shipments {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: shipment at index %d", ErrMissingID, i)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	return nil
}

// Result is the outcome of splitting one shipment file.
type Result struct {
	ProcessingUUID string
	TotalShipments int
	SplitRequired  bool
	Packages       []model.Package
}

// Split divides the shipments into packages of at most MaxPerPackage
// and stamps each package with its metadata and image statistics.
// originalFile is the object name of the source file.
func (s *Splitter) Split(file *model.ShipmentFile, originalFile string) (*Result, error) {
	if s.MaxPerPackage <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := Validate(file); err != nil {
		return nil, err
	}

	total := len(file.Shipments)
	totalParts := (total + s.MaxPerPackage - 1) / s.MaxPerPackage
	processingUUID := s.newUUID().String()
	splitRequired := totalParts > 1
	processedAt := s.now().UTC()

	packages := make([]model.Package, 0, totalParts)
	for part := 1; part <= totalParts; part++ {
		start := (part - 1) * s.MaxPerPackage
		end := start + s.MaxPerPackage
		if end > total {
			end = total
		}
		shipments := file.Shipments[start:end]

		pkg := model.Package{
			Shipments: shipments,
			Metadata: model.PackageMetadata{
				ProcessingUUID:     processingUUID,
				PackageUUID:        PackageUUID(processingUUID, part),
				Part:               part,
				TotalParts:         totalParts,
				ShipmentRange:      fmt.Sprintf("%d-%d", start+1, end),
				ShipmentsInPackage: len(shipments),
				TotalShipments:     total,
				OriginalFile:       originalFile,
				ProcessedAt:        processedAt,
				ProcessorVersion:   s.Version,
				SplitRequired:      splitRequired,
			},
			ImageStats: ComputeImageStats(shipments),
		}
		packages = append(packages, pkg)
	}

	return &Result{
		ProcessingUUID: processingUUID,
		TotalShipments: total,
		SplitRequired:  splitRequired,
		Packages:       packages,
	}, nil
}

// PackageUUID derives the stable UUID for one part of a processing run.
func PackageUUID(processingUUID string, part int) string {
	name := fmt.Sprintf("%s-%d", processingUUID, part)
	return uuid.NewSHA1(packageNamespace, []byte(name)).String()
}

// PackageObjectName builds the object key for a package under its
// processing prefix. Files that fit in a single package keep a simpler
// name without part numbering.
func PackageObjectName(processingUUID, originalFile string, part, totalParts int) string {
	base := strings.TrimSuffix(path.Base(originalFile), path.Ext(originalFile))
	if totalParts <= 1 {
		return fmt.Sprintf("%s/%s_processed.json", processingUUID, base)
	}
	return fmt.Sprintf("%s/%s_part_%d_of_%d.json", processingUUID, base, part, totalParts)
}

// Enrich attaches image paths from the catalog to their shipments and
// refreshes the per-shipment image flags.
func Enrich(shipments []model.Shipment, pathsByShipment map[string][]string) {
	for i := range shipments {
		paths := pathsByShipment[shipments[i].ID]
		shipments[i].ImagePaths = paths
		shipments[i].ImageCount = len(paths)
		shipments[i].HasImages = len(paths) > 0 || shipments[i].ImageURL != ""
	}
}

// ComputeImageStats summarizes image coverage over a set of shipments.
func ComputeImageStats(shipments []model.Shipment) model.ImageStats {
	stats := model.ImageStats{
		TotalShipments:    len(shipments),
		ImagesPerShipment: make(map[string]int),
	}

	for _, s := range shipments {
		count := s.ImageCount
		if count == 0 && s.ImageURL != "" {
			count = 1
		}
		if count > 0 {
			stats.WithImages++
			stats.TotalImages += count
		} else {
			stats.WithoutImages++
		}
		stats.ImagesPerShipment[fmt.Sprintf("%d", count)]++
	}

	if stats.TotalShipments > 0 {
		stats.WithImagesPercent = round2(float64(stats.WithImages) / float64(stats.TotalShipments) * 100)
		stats.AvgImagesPerShipment = round2(float64(stats.TotalImages) / float64(stats.TotalShipments))
	}

	return stats
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
