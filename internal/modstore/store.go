// Package modstore implements the module's persistent key/value store (spec
// §4.3 "Module" and component F): every file, sample, and manifest a
// composition needs is addressed by a slash-separated key path and stored
// as a blob under a Handle. Grounded on the teacher's
// internal/database/database.go: a modernc.org/sqlite connection opened
// with WAL mode and a single writer connection, with embedded, versioned
// SQL migrations applied at startup.
package modstore

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the sqlite-backed key/value store shared by every Handle. One
// Store corresponds to one KUNQUAT_DATA_DIR.
type Store struct {
	db *sql.DB
}

// Open creates or opens the module store database under dataDir, enables
// WAL mode, and runs any pending migrations.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("modstore: creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "synthcore.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", dbPath)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("modstore: opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("modstore: pinging database: %w", err)
	}

	// sqlite performs best with a single writer connection; set_data calls
	// are serialized by the control surface anyway (spec §5).
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: sqlDB}

	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("modstore: running migrations: %w", err)
	}

	slog.Info("modstore opened", "path", dbPath)
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs all pending SQL migration files in filename order, each in
// its own transaction, tracked in a schema_migrations table.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}

		slog.Info("modstore: applied migration", "version", version)
	}

	return nil
}
