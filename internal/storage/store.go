package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

type Store struct {
	db   *sql.DB
	path string

	Settings SettingsRepository
	Groups   GroupRepository
	Secrets  SecretRepository
	Audit    AuditRepository
}

// Open opens or creates the store file at path and brings its schema up
// to date. The returned store is ready for repository calls; the
// settings singleton may still be unseeded until Initialize runs.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:   db,
		path: path,
	}
	store.Settings = &settingsRepository{db: db}
	store.Groups = &groupRepository{db: db}
	store.Secrets = &secretRepository{db: db}
	store.Audit = &auditRepository{db: db}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Initialize seeds the root group and the settings singleton in one
// transaction. Reinitializing an existing store changes nothing and
// reports Created false with the recipient id already on record.
func (s *Store) Initialize(ctx context.Context, recipientID string) (InitResult, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return InitResult{}, fmt.Errorf("initialize: %w: recipient id", ErrEmptyValue)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return InitResult{}, fmt.Errorf("initialize: begin: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO groups(group_id, parent_group_id, group_name) VALUES(?, NULL, '/')`,
		RootGroupID,
	); err != nil {
		_ = tx.Rollback()
		return InitResult{}, fmt.Errorf("initialize: seed root group: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(id, recipient_id, schema_version) VALUES(1, ?, ?)`,
		recipientID, CurrentSchemaVersion(),
	)
	if err != nil {
		_ = tx.Rollback()
		return InitResult{}, fmt.Errorf("initialize: seed settings: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return InitResult{}, fmt.Errorf("initialize: rows affected: %w", err)
	}

	result := InitResult{Created: inserted > 0, RecipientID: recipientID}
	if !result.Created {
		var current sql.NullString
		if err := tx.QueryRowContext(ctx, `SELECT recipient_id FROM settings WHERE id = 1`).Scan(&current); err != nil {
			_ = tx.Rollback()
			return InitResult{}, fmt.Errorf("initialize: read settings: %w", err)
		}
		result.RecipientID = strings.TrimSpace(current.String)
	}

	if err := tx.Commit(); err != nil {
		return InitResult{}, fmt.Errorf("initialize: commit: %w", err)
	}
	return result, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	if err := os.Chmod(path, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set db file permissions: %w", err)
		}
	}

	walPath := path + "-wal"
	if err := os.Chmod(walPath, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set wal file permissions: %w", err)
		}
	}
	return nil
}
