package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shipstream/internal/repository"
)

type imageRepository struct {
	db *sql.DB
}

// NewImageRepository builds the Postgres-backed image catalog reader.
func NewImageRepository(db *sql.DB) repository.ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) PathsByShipmentIDs(ctx context.Context, shipmentIDs []string) (map[string][]string, error) {
	if len(shipmentIDs) == 0 {
		return map[string][]string{}, nil
	}

	query := `SELECT shipment_id, path
		FROM shipment_images
		WHERE shipment_id = ANY($1) AND deleted_at IS NULL
		ORDER BY shipment_id, id`

	rows, err := r.db.QueryContext(ctx, query, shipmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipment images: %w", err)
	}
	defer rows.Close()

	paths := make(map[string][]string)
	for rows.Next() {
		var shipmentID, path string
		if err := rows.Scan(&shipmentID, &path); err != nil {
			return nil, fmt.Errorf("failed to scan shipment image row: %w", err)
		}
		paths[shipmentID] = append(paths[shipmentID], path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shipment images: %w", err)
	}

	return paths, nil
}
