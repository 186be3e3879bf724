package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	guardDeleteMessage = "cannot delete system row"
	guardUpdateMessage = "cannot modify system row"
)

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

// mapGuardError converts schema guard trigger failures into ErrSystemRow
// while keeping the driver detail in the chain.
func mapGuardError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, guardDeleteMessage) || strings.Contains(msg, guardUpdateMessage) {
		return fmt.Errorf("%w: %v", ErrSystemRow, err)
	}
	return err
}
