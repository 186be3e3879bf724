// Package clipboard copies secret values to the system clipboard and
// clears them again without wiping content some other program put there
// in the meantime. Ownership is tracked with a content fingerprint.
package clipboard

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable means no clipboard mechanism exists on this platform,
// for example a headless Linux box without xclip or xsel.
var ErrUnavailable = errors.New("clipboard: not available on this platform")

// Copy places value on the clipboard and returns its fingerprint for a
// later guarded clear.
func Copy(value []byte) (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	if err := clipboard.WriteAll(string(value)); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return Fingerprint(value), nil
}

// Fingerprint returns the hex SHA-256 of value. It is safe to pass
// between processes; the value itself never leaves the clipboard.
func Fingerprint(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// ClearIfOwned wipes the clipboard only while it still holds the
// content matching fingerprint. It reports whether a clear happened.
func ClearIfOwned(fingerprint string) (bool, error) {
	if clipboard.Unsupported {
		return false, ErrUnavailable
	}
	current, err := clipboard.ReadAll()
	if err != nil {
		return false, fmt.Errorf("read clipboard: %w", err)
	}
	if Fingerprint([]byte(current)) != fingerprint {
		return false, nil
	}
	if err := clipboard.WriteAll(""); err != nil {
		return false, fmt.Errorf("clear clipboard: %w", err)
	}
	return true, nil
}
