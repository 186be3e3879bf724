// Package audit records store operations in the audit_events table so
// that `ppass audit` can reconstruct what happened to the store and when.
// Detail payloads are sanitized before they are persisted: keys that look
// like credential material are dropped, never logged.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vodchella/ppass/internal/storage"
)

type Recorder struct {
	repo storage.AuditRepository
}

func NewRecorder(repo storage.AuditRepository) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("new audit recorder: repository is nil")
	}
	return &Recorder{repo: repo}, nil
}

func (r *Recorder) Record(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Action) == "" {
		return fmt.Errorf("record audit event: action is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}

	detailsJSON, err := canonicalizeDetails(event.Details)
	if err != nil {
		return fmt.Errorf("record audit event: canonicalize details: %w", err)
	}

	entry := &storage.AuditEvent{
		Action:      event.Action,
		Target:      event.Target,
		DetailsJSON: string(detailsJSON),
		CreatedAt:   event.Timestamp,
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("record audit event: append: %w", err)
	}
	return nil
}

func (r *Recorder) List(ctx context.Context, filter Filter) ([]RecordedEvent, error) {
	events, err := r.repo.List(ctx, storage.AuditFilter{
		Action: filter.Action,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	out := make([]RecordedEvent, 0, len(events))
	for _, event := range events {
		out = append(out, RecordedEvent{
			ID:          event.ID,
			Timestamp:   event.CreatedAt,
			Action:      event.Action,
			Target:      event.Target,
			DetailsJSON: event.DetailsJSON,
		})
	}
	return out, nil
}

// canonicalizeDetails sanitizes the detail map and encodes it with sorted
// keys so that equal payloads always serialize to the same bytes.
func canonicalizeDetails(details map[string]any) (json.RawMessage, error) {
	if len(details) == 0 {
		return json.RawMessage(`{}`), nil
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal details: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode details json: %w", err)
	}

	var buf bytes.Buffer
	if err := encodeCanonicalJSON(&buf, sanitizeValue(decoded)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clean := make(map[string]any, len(typed))
		for key, nested := range typed {
			if isSensitiveDetailKey(key) {
				continue
			}
			clean[key] = sanitizeValue(nested)
		}
		return clean
	case []any:
		out := make([]any, 0, len(typed))
		for _, nested := range typed {
			out = append(out, sanitizeValue(nested))
		}
		return out
	default:
		return value
	}
}

func isSensitiveDetailKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, pattern := range sensitiveDetailPatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

var sensitiveDetailPatterns = []string{
	"password", "passphrase", "secret", "token",
	"plaintext", "private_key", "identity", "value",
}

func encodeCanonicalJSON(buf *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(key)
			if err != nil {
				return fmt.Errorf("canonical json: marshal key: %w", err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := encodeCanonicalJSON(buf, typed[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range typed {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonicalJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Errorf("canonical json: marshal scalar: %w", err)
		}
		buf.Write(raw)
		return nil
	}
}
