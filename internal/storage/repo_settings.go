package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type settingsRepository struct {
	db *sql.DB
}

// Get returns the settings singleton. It reports ErrNotInitialized when
// the row was never seeded and ErrCorruptSettings when the row exists
// without a recipient id.
func (r *settingsRepository) Get(ctx context.Context) (*Settings, error) {
	var (
		recipient sql.NullString
		version   int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT recipient_id, schema_version FROM settings WHERE id = 1`,
	).Scan(&recipient, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	recipientID := strings.TrimSpace(recipient.String)
	if recipientID == "" {
		return nil, ErrCorruptSettings
	}
	return &Settings{RecipientID: recipientID, SchemaVersion: version}, nil
}
