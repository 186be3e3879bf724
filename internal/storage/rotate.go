package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/vodchella/ppass/internal/crypto"
)

// RotateState identifies the stage a rotation has reached. Observers see
// Decrypting, Encrypting and RowWritten once per row, then
// SettingsUpdated and Committed once each.
type RotateState int

const (
	RotateIdle RotateState = iota
	RotateDecrypting
	RotateEncrypting
	RotateRowWritten
	RotateSettingsUpdated
	RotateCommitted
)

// RotateObserver receives progress notifications during a rotation.
// Notifications are informational only and cannot alter the outcome.
type RotateObserver interface {
	RotateProgress(state RotateState, row, total int)
}

type noopObserver struct{}

func (noopObserver) RotateProgress(RotateState, int, int) {}

type RotateResult struct {
	Rows           int
	OldRecipientID string
	NewRecipientID string
}

// Rotate re-encrypts every password row, live and dead, for a new
// recipient and updates the settings identity, all inside one
// transaction. Any failure before the commit leaves the store untouched.
func (s *Store) Rotate(ctx context.Context, gateway crypto.Gateway, newRecipientID string, observer RotateObserver) (RotateResult, error) {
	newRecipientID = strings.TrimSpace(newRecipientID)
	if newRecipientID == "" {
		return RotateResult{}, fmt.Errorf("rotate: %w: recipient id", ErrEmptyValue)
	}
	if gateway == nil {
		return RotateResult{}, fmt.Errorf("rotate: nil gateway")
	}
	if observer == nil {
		observer = noopObserver{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RotateResult{}, fmt.Errorf("rotate: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var oldRecipient sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT recipient_id FROM settings WHERE id = 1`).Scan(&oldRecipient)
	if errors.Is(err, sql.ErrNoRows) {
		return RotateResult{}, ErrNotInitialized
	}
	if err != nil {
		return RotateResult{}, fmt.Errorf("rotate: read settings: %w", err)
	}
	oldRecipientID := strings.TrimSpace(oldRecipient.String)
	if oldRecipientID == "" {
		return RotateResult{}, ErrCorruptSettings
	}

	items, err := listCipherRows(ctx, tx)
	if err != nil {
		return RotateResult{}, err
	}

	total := len(items)
	for i, item := range items {
		observer.RotateProgress(RotateDecrypting, i+1, total)
		plaintext, err := gateway.Decrypt(item.ciphertext)
		if err != nil {
			return RotateResult{}, fmt.Errorf("rotate: decrypt row %d: %w", item.id, err)
		}

		observer.RotateProgress(RotateEncrypting, i+1, total)
		ciphertext, err := gateway.Encrypt(plaintext, newRecipientID)
		memguard.WipeBytes(plaintext)
		if err != nil {
			return RotateResult{}, fmt.Errorf("rotate: encrypt row %d: %w", item.id, err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE passwords SET ciphertext = ? WHERE password_id = ?`, ciphertext, item.id); err != nil {
			return RotateResult{}, fmt.Errorf("rotate: write row %d: %w", item.id, err)
		}
		observer.RotateProgress(RotateRowWritten, i+1, total)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE settings SET recipient_id = ? WHERE id = 1`, newRecipientID); err != nil {
		return RotateResult{}, fmt.Errorf("rotate: update settings: %w", err)
	}
	observer.RotateProgress(RotateSettingsUpdated, total, total)

	if err := tx.Commit(); err != nil {
		return RotateResult{}, fmt.Errorf("rotate: commit: %w", err)
	}
	committed = true
	observer.RotateProgress(RotateCommitted, total, total)

	return RotateResult{
		Rows:           total,
		OldRecipientID: oldRecipientID,
		NewRecipientID: newRecipientID,
	}, nil
}

type cipherRow struct {
	id         int64
	ciphertext string
}

func listCipherRows(ctx context.Context, tx *sql.Tx) ([]cipherRow, error) {
	rows, err := tx.QueryContext(ctx, `SELECT password_id, ciphertext FROM passwords ORDER BY password_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("rotate: list rows: %w", err)
	}
	defer rows.Close()

	var items []cipherRow
	for rows.Next() {
		var item cipherRow
		if err := rows.Scan(&item.id, &item.ciphertext); err != nil {
			return nil, fmt.Errorf("rotate: scan row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rotate: iterate rows: %w", err)
	}
	return items, nil
}
