// Package app orchestrates the password store use cases on top of the
// storage repositories and the encryption gateway. Commands talk to the
// Service; the Service decides what gets encrypted, stored and audited.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vodchella/ppass/internal/audit"
	"github.com/vodchella/ppass/internal/crypto"
	"github.com/vodchella/ppass/internal/storage"
)

type Service struct {
	store   *storage.Store
	gateway crypto.Gateway
	audit   *audit.Recorder
	log     *slog.Logger
}

func NewService(store *storage.Store, gateway crypto.Gateway, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:   store,
		gateway: gateway,
		audit:   recorder,
		log:     logger,
	}
}

// Init initializes a fresh store for the recipient, or re-encrypts an
// already initialized store for it. Re-encryption touches every stored
// row, live and dead, and either completes fully or changes nothing.
func (s *Service) Init(ctx context.Context, recipientID string, observer storage.RotateObserver) (InitResult, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return InitResult{}, fmt.Errorf("%w: recipient id is required", ErrValidation)
	}
	if err := crypto.ValidateRecipient(recipientID); err != nil {
		return InitResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	_, err := s.store.Settings.Get(ctx)
	if errors.Is(err, storage.ErrNotInitialized) {
		if _, err := s.store.Initialize(ctx, recipientID); err != nil {
			return InitResult{}, err
		}
		if err := s.audit.Record(ctx, audit.Event{
			Action: audit.ActionStoreInit,
			Target: recipientID,
		}); err != nil {
			return InitResult{}, err
		}
		s.log.Info("password store initialized", "recipient", recipientID)
		return InitResult{Initialized: true, RecipientID: recipientID}, nil
	}
	if err != nil {
		return InitResult{}, err
	}

	rotated, err := s.store.Rotate(ctx, s.gateway, recipientID, observer)
	if err != nil {
		return InitResult{}, err
	}
	if err := s.audit.Record(ctx, audit.Event{
		Action: audit.ActionStoreRotate,
		Target: recipientID,
		Details: map[string]any{
			"old_recipient": rotated.OldRecipientID,
			"new_recipient": rotated.NewRecipientID,
			"rows":          rotated.Rows,
		},
	}); err != nil {
		return InitResult{}, err
	}
	s.log.Info("password store reencrypted", "recipient", recipientID, "rows", rotated.Rows)
	return InitResult{Rotated: true, Rows: rotated.Rows, RecipientID: recipientID}, nil
}

// Tree returns everything `ppass ls` renders: all groups and the live
// entry of every stored password.
func (s *Service) Tree(ctx context.Context) (*TreeSnapshot, error) {
	if _, err := s.store.Settings.Get(ctx); err != nil {
		return nil, err
	}

	groups, err := s.store.Groups.List(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Secrets.List(ctx)
	if err != nil {
		return nil, err
	}
	return &TreeSnapshot{Groups: groups, Entries: entries}, nil
}

func (s *Service) Audit(ctx context.Context, query AuditQuery) ([]audit.RecordedEvent, error) {
	if _, err := s.store.Settings.Get(ctx); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, audit.Filter{
		Action: query.Action,
		Limit:  query.Limit,
	})
}

// RecordClip notes that a secret value was copied to the clipboard.
func (s *Service) RecordClip(ctx context.Context, name string) error {
	if err := s.audit.Record(ctx, audit.Event{
		Action: audit.ActionSecretClip,
		Target: name,
	}); err != nil {
		return err
	}
	s.log.Debug("copied secret to clipboard", "name", name)
	return nil
}
