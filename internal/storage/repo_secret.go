package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type secretRepository struct {
	db *sql.DB
}

const secretColumns = `password_id, deleted, group_id, password_name, ciphertext, login, description, created_at`

func (r *secretRepository) Exists(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM passwords WHERE password_name = ? AND deleted = 0`, name,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check secret %q: %w", name, err)
	}
	return true, nil
}

// Save inserts a new live version of the named secret. When a live row
// with the same name already exists in the group it is marked deleted in
// the same transaction, so at most one live row per name survives.
func (r *secretRepository) Save(ctx context.Context, req SaveSecretRequest) (SaveResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return SaveResult{}, fmt.Errorf("save secret: %w: name", ErrEmptyValue)
	}
	if strings.TrimSpace(req.Ciphertext) == "" {
		return SaveResult{}, fmt.Errorf("save secret %q: %w: ciphertext", name, ErrEmptyValue)
	}
	groupID := req.GroupID
	if groupID == 0 {
		groupID = RootGroupID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save secret %q: begin: %w", name, err)
	}

	var (
		prevID          sql.NullInt64
		prevLogin       sql.NullString
		prevDescription sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT password_id, login, description FROM passwords
		 WHERE group_id = ? AND password_name = ? AND deleted = 0`,
		groupID, name,
	).Scan(&prevID, &prevLogin, &prevDescription)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return SaveResult{}, fmt.Errorf("save secret %q: read live row: %w", name, err)
	}

	superseded := prevID.Valid
	if superseded {
		if _, err := tx.ExecContext(ctx, `UPDATE passwords SET deleted = 1 WHERE password_id = ?`, prevID.Int64); err != nil {
			_ = tx.Rollback()
			return SaveResult{}, fmt.Errorf("save secret %q: supersede row %d: %w", name, prevID.Int64, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO passwords(deleted, group_id, password_name, ciphertext, login, description, created_at)
		 VALUES(0, ?, ?, ?, ?, ?, ?)`,
		groupID, name, req.Ciphertext,
		carryForward(req.Login, prevLogin),
		carryForward(req.Description, prevDescription),
		fmtTime(nowUTC()),
	)
	if err != nil {
		_ = tx.Rollback()
		return SaveResult{}, fmt.Errorf("save secret %q: insert: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return SaveResult{}, fmt.Errorf("save secret %q: last insert id: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("save secret %q: commit: %w", name, err)
	}

	result := SaveResult{ID: id, Superseded: superseded}
	if superseded {
		result.PreviousID = prevID.Int64
	}
	return result, nil
}

func (r *secretRepository) Get(ctx context.Context, name string) (*SecretEntry, error) {
	name = strings.TrimSpace(name)
	entry, err := scanSecret(r.db.QueryRowContext(ctx,
		`SELECT `+secretColumns+` FROM passwords WHERE password_name = ? AND deleted = 0`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get secret %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get secret %q: %w", name, err)
	}
	return entry, nil
}

func (r *secretRepository) List(ctx context.Context) ([]SecretEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+secretColumns+` FROM passwords WHERE deleted = 0 ORDER BY password_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	return collectSecrets(rows, "list secrets")
}

// History returns every stored version of the named secret, newest
// first. The live row, when one exists, is always the first element.
func (r *secretRepository) History(ctx context.Context, name string) ([]SecretEntry, error) {
	name = strings.TrimSpace(name)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+secretColumns+` FROM passwords WHERE password_name = ? ORDER BY password_id DESC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("secret history %q: %w", name, err)
	}
	return collectSecrets(rows, fmt.Sprintf("secret history %q", name))
}

// carryForward keeps the previous row's value when the caller does not
// supply one.
func carryForward(override *string, previous sql.NullString) any {
	if override != nil {
		return *override
	}
	if previous.Valid {
		return previous.String
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSecret(row rowScanner) (*SecretEntry, error) {
	var (
		entry       SecretEntry
		deleted     int
		login       sql.NullString
		description sql.NullString
		createdAt   string
	)
	if err := row.Scan(&entry.ID, &deleted, &entry.GroupID, &entry.Name, &entry.Ciphertext, &login, &description, &createdAt); err != nil {
		return nil, err
	}
	entry.Deleted = deleted != 0
	entry.Login = login.String
	entry.Description = description.String

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = created
	return &entry, nil
}

func collectSecrets(rows *sql.Rows, op string) ([]SecretEntry, error) {
	defer rows.Close()

	var entries []SecretEntry
	for rows.Next() {
		entry, err := scanSecret(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}
