package migrations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/noteverse/internal/db"
	"github.com/yigit/noteverse/internal/pkg/logger"
)

// Migrator applies the numbered SQL files of a directory
type Migrator struct {
	db *pgxpool.Pool
}

// NewMigrator creates a new migrator
func NewMigrator(db *pgxpool.Pool) *Migrator {
	return &Migrator{
		db: db,
	}
}

// Migration is one SQL file
type Migration struct {
	Version string
	Path    string
}

func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	if err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := m.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

// Apply runs one migration and records it in the same transaction
func (m *Migrator) Apply(ctx context.Context, mig Migration) (bool, error) {
	applied, err := m.isMigrationApplied(ctx, mig.Version)
	if err != nil {
		return false, err
	}
	if applied {
		logger.Debug().Str("version", mig.Version).Msg("Migration already applied, skipping")
		return false, nil
	}

	content, err := os.ReadFile(mig.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read migration file: %w", err)
	}

	err = db.WithTransaction(ctx, m.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", filepath.Base(mig.Path), err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, mig.Version); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	logger.Info().Str("file", filepath.Base(mig.Path)).Msg("Migration applied")
	return true, nil
}

// MigrateFromDirectory applies every pending SQL file of dirPath in order and
// returns how many were applied
func (m *Migrator) MigrateFromDirectory(ctx context.Context, dirPath string) (int, error) {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return 0, err
	}

	migs, err := List(dirPath)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migs {
		applied, err := m.Apply(ctx, mig)
		if err != nil {
			return count, err
		}
		if applied {
			count++
		}
	}
	return count, nil
}

// List returns the SQL files of dirPath sorted by name. The version is the
// file name prefix before the first underscore ("001_init.sql" => "001").
func List(dirPath string) ([]Migration, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var migs []Migration
	seen := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version := strings.SplitN(e.Name(), "_", 2)[0]
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()
		migs = append(migs, Migration{Version: version, Path: filepath.Join(dirPath, e.Name())})
	}

	sort.Slice(migs, func(i, j int) bool { return migs[i].Path < migs[j].Path })
	return migs, nil
}
