package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"linkshelf/internal/middleware"

	"gorm.io/gorm"
)

// ErrMigrationsNeedPostgres is returned when versioned SQL is pointed at SQLite.
// SQLite schemas come from AutoMigrate only.
var ErrMigrationsNeedPostgres = errors.New("sql migrations target postgres; use AutoMigrate for sqlite")

const ensureSchemaMigrationsSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// MigrationStore records which migrations ran. Apply and Revert run the script and the
// bookkeeping in one transaction, so a failed script leaves no record behind.
type MigrationStore interface {
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

// Applied lists recorded migrations by version. A database that never ran
// migrations has no table yet and reports none.
func (s *migrationStore) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	err := s.db.WithContext(ctx).
		Raw("SELECT version, name, checksum, applied_at FROM schema_migrations ORDER BY version").
		Scan(&rows).Error
	if err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
			m.Version, m.Name, m.Checksum()).Error
	})
	if err != nil {
		return fmt.Errorf("apply %s: %w", m, err)
	}
	return nil
}

func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM schema_migrations WHERE version = ?", m.Version).Error
	})
	if err != nil {
		return fmt.Errorf("revert %s: %w", m, err)
	}
	return nil
}

func requirePostgres(db *gorm.DB) error {
	if db == nil {
		return errors.New("database is not initialized")
	}
	if db.Dialector.Name() != "postgres" {
		return ErrMigrationsNeedPostgres
	}
	return nil
}

func appliedVersions(rows []AppliedMigration) []int {
	versions := make([]int, 0, len(rows))
	for _, r := range rows {
		versions = append(versions, r.Version)
	}
	return versions
}

// RunMigrations applies every pending migration in version order and returns how many ran.
func RunMigrations(ctx context.Context, db *gorm.DB) (int, error) {
	if err := requirePostgres(db); err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Exec(ensureSchemaMigrationsSQL).Error; err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAppliedVersions(applied, migrations); err != nil {
		return 0, err
	}

	pending := pendingMigrations(migrations, appliedVersions(applied))
	for _, m := range pending {
		middleware.Logger.InfoContext(ctx, "applying migration", slog.String("migration", m.String()))
		if err := store.Apply(ctx, m); err != nil {
			return 0, err
		}
	}
	if len(pending) == 0 {
		middleware.Logger.DebugContext(ctx, "schema is current", slog.Int("applied", len(applied)))
	}
	return len(pending), nil
}

// validateAppliedVersions rejects a database that ran migrations this build does not
// ship, or whose recorded checksum no longer matches the embedded script.
func validateAppliedVersions(applied []AppliedMigration, registered []Migration) error {
	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}

	var unknown, edited []string
	for _, row := range applied {
		m, ok := byVersion[row.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
		case row.Checksum != "" && row.Checksum != m.Checksum():
			edited = append(edited, m.String())
		}
	}

	switch {
	case len(unknown) > 0:
		return fmt.Errorf("schema_migrations lists versions this build does not know: %s (newer deploy or reset database?)",
			strings.Join(unknown, ", "))
	case len(edited) > 0:
		return fmt.Errorf("applied migrations changed since they ran: %s (add a new migration instead of editing)",
			strings.Join(edited, ", "))
	}
	return nil
}

// RollbackMigration reverts version, which must be the newest applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	if err := requirePostgres(db); err != nil {
		return err
	}
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration %06d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 || !containsVersion(applied, version) {
		return fmt.Errorf("migration %s has not been applied", m)
	}
	if newest := applied[len(applied)-1].Version; newest != version {
		return fmt.Errorf("migration %s is not the newest applied (%06d); roll that back first", m, newest)
	}

	middleware.Logger.InfoContext(ctx, "rolling back migration", slog.String("migration", m.String()))
	return store.Revert(ctx, *m)
}

func containsVersion(rows []AppliedMigration, version int) bool {
	for _, r := range rows {
		if r.Version == version {
			return true
		}
	}
	return false
}
