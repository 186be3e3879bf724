package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type groupRepository struct {
	db *sql.DB
}

func (r *groupRepository) Create(ctx context.Context, group *Group) error {
	if group == nil {
		return fmt.Errorf("create group: nil group")
	}
	name := strings.TrimSpace(group.Name)
	if name == "" {
		return fmt.Errorf("create group: %w: group name", ErrEmptyValue)
	}

	var parent any
	if group.ParentID != nil {
		parent = *group.ParentID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO groups(parent_group_id, group_name) VALUES(?, ?)`,
		parent, name,
	)
	if err != nil {
		return fmt.Errorf("create group %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create group %q: last insert id: %w", name, err)
	}
	group.ID = id
	group.Name = name
	return nil
}

func (r *groupRepository) Get(ctx context.Context, id int64) (*Group, error) {
	var (
		group  Group
		parent sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT group_id, parent_group_id, group_name FROM groups WHERE group_id = ?`, id,
	).Scan(&group.ID, &parent, &group.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group %d: %w", id, err)
	}
	if parent.Valid {
		group.ParentID = &parent.Int64
	}
	return &group, nil
}

func (r *groupRepository) List(ctx context.Context) ([]Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, parent_group_id, group_name FROM groups ORDER BY group_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var (
			group  Group
			parent sql.NullInt64
		)
		if err := rows.Scan(&group.ID, &parent, &group.Name); err != nil {
			return nil, fmt.Errorf("list groups: scan: %w", err)
		}
		if parent.Valid {
			group.ParentID = &parent.Int64
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (r *groupRepository) Rename(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename group %d: %w: group name", id, ErrEmptyValue)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE groups SET group_name = ? WHERE group_id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename group %d: %w", id, mapGuardError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename group %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("rename group %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE group_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group %d: %w", id, mapGuardError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete group %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete group %d: %w", id, ErrNotFound)
	}
	return nil
}
