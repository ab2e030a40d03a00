package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const CurrentSchemaVersion = "1.1.0"

// Migration is one schema step. Up holds single statements so drivers
// without multi-statement support can run them.
type Migration struct {
	Version string
	Up      func(d dialect) []string
}

var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up: func(d dialect) []string {
			return []string{
				`CREATE TABLE IF NOT EXISTS orders (
					id VARCHAR(36) NOT NULL PRIMARY KEY,
					version BIGINT NOT NULL,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS order_items (
					order_id VARCHAR(36) NOT NULL,
					product_id VARCHAR(128) NOT NULL,
					quantity INT NOT NULL,
					unit_amount ` + d.amountType + ` NOT NULL,
					currency VARCHAR(8) NOT NULL,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (order_id, product_id)
				)`,
			}
		},
	},
	{
		// line order survives reloads
		Version: "1.1.0",
		Up: func(d dialect) []string {
			return []string{
				`ALTER TABLE order_items ADD COLUMN line_no INT NOT NULL DEFAULT 0`,
			}
		},
	},
}

// ApplyMigrations brings the schema up to CurrentSchemaVersion. Applied
// versions are recorded in schema_version, so it is safe to call on every
// start.
func ApplyMigrations(ctx context.Context, db *sql.DB, driver string) error {
	d, err := lookupDialect(driver)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version VARCHAR(32) NOT NULL PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	return applyMigrations(ctx, db, d, AllMigrations)
}

// applyMigrations runs each pending migration and its schema_version row in
// one transaction. SQLite and PostgreSQL roll DDL back with it; MySQL commits
// DDL implicitly, so there only the version row is transactional.
func applyMigrations(ctx context.Context, db *sql.DB, d dialect, migrations []Migration) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !current.LessThan(v) {
			continue
		}
		if err := applyMigration(ctx, db, d, m); err != nil {
			return err
		}
		current = v
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, d dialect, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Up(d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, d.rebind(`INSERT INTO schema_version (version) VALUES (?)`), m.Version); err != nil {
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}

// currentVersion is the highest recorded version, 0.0.0 on a fresh database.
func currentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_version: %w", err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan schema_version: %w", err)
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", raw, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}
