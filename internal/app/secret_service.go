package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/vodchella/ppass/internal/audit"
	"github.com/vodchella/ppass/internal/storage"
)

// Save encrypts the value for the store recipient and stores it as the
// new live version of the named password. The plaintext buffer is wiped
// before Save returns.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveOutcome, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return SaveOutcome{}, fmt.Errorf("%w: password name is required", ErrValidation)
	}
	if len(req.Value) == 0 {
		return SaveOutcome{}, fmt.Errorf("%w: password value is required", ErrValidation)
	}

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return SaveOutcome{}, err
	}

	ciphertext, err := s.gateway.Encrypt(req.Value, settings.RecipientID)
	memguard.WipeBytes(req.Value)
	if err != nil {
		return SaveOutcome{}, err
	}

	result, err := s.store.Secrets.Save(ctx, storage.SaveSecretRequest{
		Name:        name,
		Ciphertext:  ciphertext,
		Login:       req.Login,
		Description: req.Description,
	})
	if err != nil {
		return SaveOutcome{}, err
	}

	if err := s.audit.Record(ctx, audit.Event{
		Action:  audit.ActionSecretSave,
		Target:  name,
		Details: map[string]any{"superseded": result.Superseded},
	}); err != nil {
		return SaveOutcome{}, err
	}
	s.log.Debug("saved secret", "name", name, "superseded", result.Superseded)
	return SaveOutcome{Superseded: result.Superseded}, nil
}

// Exists reports whether a live version of the named password is stored.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: password name is required", ErrValidation)
	}
	if _, err := s.store.Settings.Get(ctx); err != nil {
		return false, err
	}
	return s.store.Secrets.Exists(ctx, name)
}

// Reveal decrypts the live version of the named password.
func (s *Service) Reveal(ctx context.Context, name string) (*Revealed, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: password name is required", ErrValidation)
	}
	if _, err := s.store.Settings.Get(ctx); err != nil {
		return nil, err
	}

	entry, err := s.store.Secrets.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	value, err := s.gateway.Decrypt(entry.Ciphertext)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, audit.Event{
		Action: audit.ActionSecretReveal,
		Target: name,
	}); err != nil {
		return nil, err
	}
	s.log.Debug("revealed secret", "name", name)
	return &Revealed{Entry: *entry, Value: value}, nil
}

// History decrypts every stored version of the named password, newest
// first. The progress callback, when non-nil, is invoked after each
// decrypted row.
func (s *Service) History(ctx context.Context, name string, progress func(done, total int)) ([]HistoryItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: password name is required", ErrValidation)
	}
	if _, err := s.store.Settings.Get(ctx); err != nil {
		return nil, err
	}

	entries, err := s.store.Secrets.History(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, storage.ErrNotFound
	}

	items := make([]HistoryItem, 0, len(entries))
	for i, entry := range entries {
		value, err := s.gateway.Decrypt(entry.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypt version %d of %s: %w", len(entries)-i, name, err)
		}
		items = append(items, HistoryItem{Entry: entry, Value: value})
		if progress != nil {
			progress(i+1, len(entries))
		}
	}

	if err := s.audit.Record(ctx, audit.Event{
		Action:  audit.ActionSecretReveal,
		Target:  name,
		Details: map[string]any{"history": len(items)},
	}); err != nil {
		return nil, err
	}
	s.log.Debug("revealed secret history", "name", name, "rows", len(items))
	return items, nil
}
