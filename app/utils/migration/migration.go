package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"account-service/app/metrics"
)

// ErrChecksumMismatch reports an applied migration whose file changed afterwards
var ErrChecksumMismatch = errors.New("applied migration was modified")

// Migration is one numbered schema change with its rollback
type Migration struct {
	Version  int
	Name     string
	Up       string
	Down     string
	Checksum string
}

// Status describes a migration against the database
type Status struct {
	Migration
	AppliedAt *time.Time
	// Modified is set when the applied checksum differs from the file
	Modified bool
}

// Applied reports whether the migration has been run
func (s Status) Applied() bool {
	return s.AppliedAt != nil
}

type appliedRecord struct {
	appliedAt time.Time
	checksum  string
}

// Migrator runs the profile store schema migrations over database/sql
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	logger     *slog.Logger
}

// New loads every NNN_name.up.sql / NNN_name.down.sql pair from fsys
func New(db *sql.DB, fsys fs.FS, logger *slog.Logger) (*Migrator, error) {
	migrations, err := Load(fsys)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		db:         db,
		migrations: migrations,
		logger:     logger.With("component", "migrator"),
	}, nil
}

// Load reads the migration pairs in fsys ordered by version.
// Files that do not start with a numeric version are ignored.
func Load(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".up.sql") {
			return nil
		}

		version, name, ok := parseFilename(path.Base(p))
		if !ok {
			return nil
		}
		if other, dup := seen[version]; dup {
			return fmt.Errorf("migration version %d used by both %s and %s", version, other, p)
		}
		seen[version] = p

		up, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		downPath := strings.TrimSuffix(p, ".up.sql") + ".down.sql"
		down, err := fs.ReadFile(fsys, downPath)
		if err != nil {
			return fmt.Errorf("migration %d has no rollback: %w", version, err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Up:       string(up),
			Down:     string(down),
			Checksum: checksum(up),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseFilename splits "001_create_user_details.up.sql"
func parseFilename(filename string) (int, string, bool) {
	prefix, rest, found := strings.Cut(strings.TrimSuffix(filename, ".up.sql"), "_")
	if !found || rest == "" {
		return 0, "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", false
	}
	return version, rest, true
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Up applies every pending migration in order and returns how many ran.
// It refuses to run when an applied migration no longer matches its file.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	statuses := merge(m.migrations, applied)
	for _, s := range statuses {
		if s.Modified {
			return 0, fmt.Errorf("%w: %d_%s", ErrChecksumMismatch, s.Version, s.Name)
		}
	}

	count := 0
	for _, s := range statuses {
		if s.Applied() {
			continue
		}
		if err := m.apply(ctx, s.Migration); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down rolls back the latest steps applied migrations and returns how many ran
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	plan, err := rollbackPlan(m.migrations, applied, steps)
	if err != nil {
		return 0, err
	}

	for i, migration := range plan {
		if err := m.rollback(ctx, migration); err != nil {
			return i, err
		}
	}
	return len(plan), nil
}

// Status lists every known migration with its applied time
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	return merge(m.migrations, applied), nil
}

func merge(migrations []Migration, applied map[int]appliedRecord) []Status {
	statuses := make([]Status, 0, len(migrations))
	for _, migration := range migrations {
		status := Status{Migration: migration}
		if record, ok := applied[migration.Version]; ok {
			at := record.appliedAt
			status.AppliedAt = &at
			status.Modified = record.checksum != migration.Checksum
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// rollbackPlan picks the newest applied migrations, newest first
func rollbackPlan(migrations []Migration, applied map[int]appliedRecord, steps int) ([]Migration, error) {
	if steps < 1 {
		steps = 1
	}

	versions := make([]int, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	byVersion := make(map[int]Migration, len(migrations))
	for _, migration := range migrations {
		byVersion[migration.Version] = migration
	}

	var plan []Migration
	for _, version := range versions {
		if len(plan) == steps {
			break
		}
		migration, ok := byVersion[version]
		if !ok {
			return nil, fmt.Errorf("applied migration %d has no file to roll back with", version)
		}
		plan = append(plan, migration)
	}
	return plan, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	const query = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		checksum VARCHAR(64) NOT NULL
	)`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]appliedRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, applied_at, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]appliedRecord)
	for rows.Next() {
		var version int
		var record appliedRecord
		if err := rows.Scan(&version, &record.appliedAt, &record.checksum); err != nil {
			return nil, fmt.Errorf("failed to scan schema_migrations: %w", err)
		}
		applied[version] = record
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
			migration.Version, migration.Name, migration.Checksum)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to apply migration %d_%s: %w", migration.Version, migration.Name, err)
	}

	metrics.RecordMigration("up")
	m.logger.Info("migration applied", "version", migration.Version, "name", migration.Name)
	return nil
}

func (m *Migrator) rollback(ctx context.Context, migration Migration) error {
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, migration.Version)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to roll back migration %d_%s: %w", migration.Version, migration.Name, err)
	}

	metrics.RecordMigration("down")
	m.logger.Info("migration rolled back", "version", migration.Version, "name", migration.Name)
	return nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
