package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_shipment_images",
		SQL: `CREATE TABLE IF NOT EXISTS shipment_images (
  id          BIGSERIAL   PRIMARY KEY,
  shipment_id TEXT        NOT NULL,
  path        TEXT        NOT NULL,
  module      TEXT        NOT NULL DEFAULT 'cloud',
  dispatch    BOOLEAN     NOT NULL DEFAULT false,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  deleted_at  TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_shipment_images_shipment_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_shipment_images_shipment_id ON shipment_images (shipment_id) WHERE deleted_at IS NULL;`,
	},
	{
		Name: "create_table_file_processings",
		SQL: `CREATE TABLE IF NOT EXISTS file_processings (
  processing_uuid UUID        PRIMARY KEY,
  original_file   TEXT        NOT NULL,
  total_shipments INT         NOT NULL CHECK (total_shipments >= 0),
  total_packages  INT         NOT NULL CHECK (total_packages >= 0),
  status          TEXT        NOT NULL DEFAULT 'pending',
  result          JSONB,
  error_message   TEXT,
  email_sent      BOOLEAN     NOT NULL DEFAULT false,
  started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  finished_at     TIMESTAMPTZ
);`,
	},
	{
		Name: "create_index_file_processings_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_file_processings_status ON file_processings (status);`,
	},
	{
		Name: "create_table_package_processings",
		SQL: `CREATE TABLE IF NOT EXISTS package_processings (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  processing_uuid  UUID        NOT NULL,
  package_name     TEXT        NOT NULL,
  package_object   TEXT        NOT NULL,
  status           TEXT        NOT NULL DEFAULT 'pending',
  images_processed INT         NOT NULL DEFAULT 0,
  images_failed    INT         NOT NULL DEFAULT 0,
  zip_object       TEXT,
  zip_size         BIGINT,
  signed_url       TEXT,
  expires_at       TIMESTAMPTZ,
  error_message    TEXT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (processing_uuid, package_name)
);`,
	},
	{
		Name: "create_index_package_processings_uuid",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_package_processings_uuid ON package_processings (processing_uuid);`,
	},
	{
		Name: "create_table_cleanup_tasks",
		SQL: `CREATE TABLE IF NOT EXISTS cleanup_tasks (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  processing_uuid UUID        NOT NULL,
  bucket          TEXT        NOT NULL,
  prefix          TEXT        NOT NULL,
  run_after       TIMESTAMPTZ NOT NULL,
  done_at         TIMESTAMPTZ,
  objects_deleted INT         NOT NULL DEFAULT 0,
  bytes_freed     BIGINT      NOT NULL DEFAULT 0,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_cleanup_tasks_due",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_cleanup_tasks_due ON cleanup_tasks (run_after) WHERE done_at IS NULL;`,
	},
	{
		Name: "create_table_queue_messages",
		SQL: `CREATE TABLE IF NOT EXISTS queue_messages (
  id            UUID        PRIMARY KEY,
  topic         TEXT        NOT NULL,
  payload       JSONB       NOT NULL,
  attributes    JSONB,
  receive_count INT         NOT NULL DEFAULT 0,
  visible_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_queue_messages_poll",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_queue_messages_poll ON queue_messages (topic, visible_at, created_at);`,
	},
}

// EnsureMigrated checks for the file_processings sentinel table and runs
// the migration steps if it is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.file_processings') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db migration failed",
			zap.String("event", "db_migration_failed"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration",
			zap.String("event", "db_migration_skip"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		return nil
	}

	log.Info("running migrations", zap.String("event", "db_migration_start"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed",
				zap.String("event", "db_migration_failed"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()))
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("migration step applied",
			zap.String("event", "db_migration_step"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()))
	}

	log.Info("migrations complete",
		zap.String("event", "db_migration_success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil
}
