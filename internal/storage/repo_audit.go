package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type auditRepository struct {
	db *sql.DB
}

const defaultAuditListLimit = 1000

func (r *auditRepository) Append(ctx context.Context, event *AuditEvent) error {
	if event == nil {
		return fmt.Errorf("append audit event: event is nil")
	}
	if strings.TrimSpace(event.Action) == "" {
		return fmt.Errorf("append audit event: %w: action", ErrEmptyValue)
	}
	event.ID = ensureID(event.ID)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = nowUTC()
	}
	if event.DetailsJSON == "" {
		event.DetailsJSON = "{}"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events(id, action, target, details_json, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, event.ID, event.Action, event.Target, event.DetailsJSON, fmtTime(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	query := `
		SELECT
			id,
			action,
			COALESCE(target, ''),
			COALESCE(details_json, '{}'),
			created_at
		FROM audit_events
		WHERE 1=1
	`
	args := make([]any, 0, 2)
	if filter.Action != "" {
		query += ` AND action = ? `
		args = append(args, filter.Action)
	}
	query += ` ORDER BY rowid ASC LIMIT ? `
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	events := []AuditEvent{}
	for rows.Next() {
		var (
			event   AuditEvent
			created string
		)
		if err := rows.Scan(&event.ID, &event.Action, &event.Target, &event.DetailsJSON, &created); err != nil {
			return nil, fmt.Errorf("list audit events: scan row: %w", err)
		}
		event.CreatedAt, err = parseTime(created)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: iterate: %w", err)
	}
	return events, nil
}
