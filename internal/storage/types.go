package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrNotInitialized  = errors.New("storage: store not initialized")
	ErrCorruptSettings = errors.New("storage: settings corrupted")
	ErrSchemaTooNew    = errors.New("storage: schema version newer than code")

	// ErrSystemRow means a guarded row, the settings singleton or the
	// root group, was targeted by a delete or rename.
	ErrSystemRow = errors.New("storage: system row is protected")
	// ErrEmptyValue means a required field was blank after trimming.
	// Nothing has been written when it is returned.
	ErrEmptyValue = errors.New("storage: blank value rejected")
)

// RootGroupID is the id of the undeletable root group "/".
const RootGroupID int64 = 1

type Settings struct {
	RecipientID   string
	SchemaVersion int
}

// Group is a node in the folder hierarchy. ParentID is nil for the root.
type Group struct {
	ID       int64
	ParentID *int64
	Name     string
}

// SecretEntry is one stored credential version. Deleted marks rows that
// were superseded by a newer version of the same name.
type SecretEntry struct {
	ID          int64
	Deleted     bool
	GroupID     int64
	Name        string
	Ciphertext  string
	Login       string
	Description string
	CreatedAt   time.Time
}

// SaveSecretRequest describes one save. A nil Login or Description
// carries the value of the superseded row forward.
type SaveSecretRequest struct {
	Name        string
	Ciphertext  string
	GroupID     int64 // zero means RootGroupID
	Login       *string
	Description *string
}

type SaveResult struct {
	ID         int64
	Superseded bool
	PreviousID int64
}

type InitResult struct {
	Created     bool
	RecipientID string
}

type AuditEvent struct {
	ID          string
	Action      string
	Target      string
	DetailsJSON string
	CreatedAt   time.Time
}

type AuditFilter struct {
	Action string
	Limit  int
}

type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *Group) error
	Get(ctx context.Context, id int64) (*Group, error)
	List(ctx context.Context) ([]Group, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type SecretRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, req SaveSecretRequest) (SaveResult, error)
	Get(ctx context.Context, name string) (*SecretEntry, error)
	List(ctx context.Context) ([]SecretEntry, error)
	History(ctx context.Context, name string) ([]SecretEntry, error)
}

type AuditRepository interface {
	Append(ctx context.Context, event *AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}
