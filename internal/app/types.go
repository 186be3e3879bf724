package app

import (
	"errors"

	"github.com/vodchella/ppass/internal/storage"
)

var ErrValidation = errors.New("app: validation failed")

// InitResult reports what `ppass init` actually did: a fresh store gets
// Initialized, an existing one gets Rotated with the number of
// re-encrypted rows.
type InitResult struct {
	Initialized bool
	Rotated     bool
	Rows        int
	RecipientID string
}

type SaveRequest struct {
	Name  string
	Value []byte
	// Login and Description are carried forward from the previous
	// version when nil.
	Login       *string
	Description *string
}

type SaveOutcome struct {
	Superseded bool
}

type Revealed struct {
	Entry storage.SecretEntry
	Value []byte
}

type HistoryItem struct {
	Entry storage.SecretEntry
	Value []byte
}

type TreeSnapshot struct {
	Groups  []storage.Group
	Entries []storage.SecretEntry
}

type AuditQuery struct {
	Action string
	Limit  int
}
