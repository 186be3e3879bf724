package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const schemaVersionMetaKey = "schema_version"

type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create store tables and guards",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS settings (
					id INTEGER PRIMARY KEY NOT NULL DEFAULT 1 CHECK (id = 1),
					recipient_id TEXT,
					schema_version INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS groups (
					group_id INTEGER PRIMARY KEY AUTOINCREMENT,
					parent_group_id INTEGER REFERENCES groups(group_id),
					group_name TEXT NOT NULL UNIQUE CHECK (length(trim(group_name)) > 0)
				)`,
				`CREATE TABLE IF NOT EXISTS passwords (
					password_id INTEGER PRIMARY KEY AUTOINCREMENT,
					deleted INTEGER NOT NULL DEFAULT 0,
					group_id INTEGER NOT NULL DEFAULT 1 REFERENCES groups(group_id),
					password_name TEXT NOT NULL CHECK (length(trim(password_name)) > 0),
					ciphertext TEXT NOT NULL CHECK (length(trim(ciphertext)) > 0),
					created_at TEXT NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS unq_passwords_live_name
					ON passwords(group_id, password_name) WHERE deleted = 0`,
				`CREATE TRIGGER IF NOT EXISTS trg_settings_no_delete
					BEFORE DELETE ON settings
					BEGIN
						SELECT RAISE(FAIL, '` + guardDeleteMessage + `');
					END`,
				`CREATE TRIGGER IF NOT EXISTS trg_groups_no_delete_root
					BEFORE DELETE ON groups
					WHEN OLD.group_id = ` + strconv.FormatInt(RootGroupID, 10) + `
					BEGIN
						SELECT RAISE(FAIL, '` + guardDeleteMessage + `');
					END`,
				`CREATE TRIGGER IF NOT EXISTS trg_groups_no_update_root
					BEFORE UPDATE ON groups
					WHEN OLD.group_id = ` + strconv.FormatInt(RootGroupID, 10) + `
					BEGIN
						SELECT RAISE(FAIL, '` + guardUpdateMessage + `');
					END`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply migration v1 statement: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "add audit events",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS audit_events (
					id TEXT PRIMARY KEY,
					action TEXT NOT NULL,
					target TEXT,
					details_json TEXT NOT NULL DEFAULT '{}',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_audit_events_action_created_at
					ON audit_events(action, created_at)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply migration v2 statement: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "add password login and description",
		Up: func(tx *sql.Tx) error {
			for _, column := range []string{"login", "description"} {
				exists, err := columnExists(tx, "passwords", column)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				if _, err := tx.Exec(`ALTER TABLE passwords ADD COLUMN ` + column + ` TEXT`); err != nil {
					return fmt.Errorf("add passwords.%s: %w", column, err)
				}
			}
			return nil
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationTables(db); err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readSchemaVersion(db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_migrations(version, applied_at) VALUES (?, ?)`, migration.Version, nowUTCString()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema migration v%d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO store_meta(key, value) VALUES(?, ?)`, schemaVersionMetaKey, strconv.Itoa(migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update schema version v%d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
	}

	return nil
}

func ensureMigrationTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS store_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`,
		`INSERT OR IGNORE INTO store_meta(key, value) VALUES('` + schemaVersionMetaKey + `', '0')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure migration tables: %w", err)
		}
	}
	return nil
}

func readSchemaVersion(db *sql.DB) (int, error) {
	var versionStr string
	if err := db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, schemaVersionMetaKey).Scan(&versionStr); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", versionStr, err)
	}
	return version, nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(`PRAGMA table_info(` + table + `)`)
	if err != nil {
		return false, fmt.Errorf("query table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dfltVal sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dfltVal, &pk); err != nil {
			return false, fmt.Errorf("scan table info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return false, nil
}

func nowUTCString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
