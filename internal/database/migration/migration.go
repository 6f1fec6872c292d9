// Package migration creates the posts schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"postboard/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_posts",
		SQL: `CREATE TABLE IF NOT EXISTS posts (
  id         BIGSERIAL   PRIMARY KEY,
  title      TEXT        NOT NULL CHECK (btrim(title) <> ''),
  content    TEXT        NOT NULL CHECK (btrim(content) <> ''),
  image_url  TEXT        NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "add_column_posts_image_url",
		SQL:  `ALTER TABLE posts ADD COLUMN IF NOT EXISTS image_url TEXT NULL;`,
	},
	{
		Name: "create_index_posts_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC, id DESC);`,
	},
}

// existsQuery reports whether a posts table is already present.
const existsQuery = "SELECT to_regclass('public.posts') IS NOT NULL"

// EnsureMigrated brings the posts schema up to date. Every step is idempotent
// and runs on each start, so a table created by an older deployment without
// image_url or the listing index is upgraded in place.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logging.Logger, dbHost string) error {
	start := time.Now()

	log.Log(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	if err := db.QueryRowContext(ctx, existsQuery).Scan(&exists); err != nil {
		log.Log(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check posts table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check posts table: %w", err)
	}

	log.Log(map[string]any{
		"component":    "database",
		"event":        "db_migration_start",
		"status":       "in_progress",
		"table_exists": exists,
		"db_host":      dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Log(map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Log(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Log(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}
