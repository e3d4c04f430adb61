package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragindex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// DatabaseFile is the catalogue file name inside the data directory.
const DatabaseFile = "catalogue.db"

// Ensure Store implements the interface.
var _ driven.CatalogueStore = (*Store)(nil)

// Store is the SQLite-backed build catalogue.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the catalogue in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: empty data directory", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}

	return nil
}

// RecordBuild inserts or replaces a build record.
func (s *Store) RecordBuild(ctx context.Context, rec domain.BuildRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: build record without id", domain.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (id, tenant, outcome, kind, model, documents, chunks, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			kind = excluded.kind,
			model = excluded.model,
			documents = excluded.documents,
			chunks = excluded.chunks,
			finished_at = excluded.finished_at,
			error = excluded.error
	`, rec.ID, string(rec.Tenant), string(rec.Outcome), string(rec.Kind), rec.Model,
		rec.Documents, rec.Chunks, rec.StartedAt.UTC(), rec.FinishedAt.UTC(), rec.Error)
	if err != nil {
		return fmt.Errorf("%w: record build: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// LastBuild returns the most recently finished build of the tenant.
func (s *Store) LastBuild(ctx context.Context, tenant domain.TenantID) (*domain.BuildRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant, outcome, kind, model, documents, chunks, started_at, finished_at, error
		FROM builds WHERE tenant = ?
		ORDER BY finished_at DESC, started_at DESC LIMIT 1
	`, string(tenant))

	rec, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: last build: %w", domain.ErrStorageFailure, err)
	}
	return rec, nil
}

// ListBuilds returns up to limit builds of the tenant, newest first.
// A limit of zero or less returns every build.
func (s *Store) ListBuilds(ctx context.Context, tenant domain.TenantID, limit int) ([]domain.BuildRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant, outcome, kind, model, documents, chunks, started_at, finished_at, error
		FROM builds WHERE tenant = ?
		ORDER BY finished_at DESC, started_at DESC LIMIT ?
	`, string(tenant), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list builds: %w", domain.ErrStorageFailure, err)
	}
	defer rows.Close()

	var out []domain.BuildRecord
	for rows.Next() {
		rec, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan build: %w", domain.ErrStorageFailure, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list builds: %w", domain.ErrStorageFailure, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*domain.BuildRecord, error) {
	var (
		rec               domain.BuildRecord
		tenant, outcome   string
		kind              string
		started, finished time.Time
	)
	err := row.Scan(&rec.ID, &tenant, &outcome, &kind, &rec.Model,
		&rec.Documents, &rec.Chunks, &started, &finished, &rec.Error)
	if err != nil {
		return nil, err
	}
	rec.Tenant = domain.TenantID(tenant)
	rec.Outcome = domain.BuildOutcome(outcome)
	rec.Kind = domain.IndexKind(kind)
	rec.StartedAt = started
	rec.FinishedAt = finished
	return &rec, nil
}
