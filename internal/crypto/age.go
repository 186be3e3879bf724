package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// AgeGateway implements Gateway with age X25519 recipients and ASCII
// armor output.
type AgeGateway struct {
	identities []age.Identity
}

func NewAgeGateway(identities []age.Identity) *AgeGateway {
	return &AgeGateway{identities: identities}
}

// HasIdentities reports whether the gateway holds at least one private
// identity and therefore can decrypt.
func (g *AgeGateway) HasIdentities() bool {
	return len(g.identities) > 0
}

func (g *AgeGateway) Encrypt(plaintext []byte, recipientID string) (string, error) {
	recipient, err := age.ParseX25519Recipient(strings.TrimSpace(recipientID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}

	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("encrypt: close armor: %w", err)
	}
	return buf.String(), nil
}

func (g *AgeGateway) Decrypt(ciphertext string) ([]byte, error) {
	if len(g.identities) == 0 {
		return nil, ErrNoIdentities
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(ciphertext)), g.identities...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// ValidateRecipient checks that recipientID parses as an age X25519
// public key before it is persisted anywhere.
func ValidateRecipient(recipientID string) error {
	if _, err := age.ParseX25519Recipient(strings.TrimSpace(recipientID)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	return nil
}

// GenerateIdentity creates a fresh X25519 identity and returns its
// public recipient id together with the private key in the age file
// format.
func GenerateIdentity() (recipient string, private string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generate identity: %w", err)
	}
	return id.Recipient().String(), id.String(), nil
}

// LoadIdentitiesFile reads age identities from path. A missing file is
// reported as ErrNoIdentities so callers can suggest generating one.
func LoadIdentitiesFile(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoIdentities, path)
		}
		return nil, fmt.Errorf("open identities file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identities file %s: %w", path, err)
	}
	return identities, nil
}

// WriteIdentitiesFile writes one private identity to path with
// owner-only permissions. It refuses to clobber an existing file.
func WriteIdentitiesFile(path string, private string) error {
	return writeIdentity(path, private, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

// AppendIdentitiesFile adds one private identity to an existing plain
// identities file so earlier identities stay usable for decryption.
func AppendIdentitiesFile(path string, private string) error {
	return writeIdentity(path, private, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func writeIdentity(path string, private string, flag int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create identities dir: %w", err)
	}
	f, err := os.OpenFile(path, flag, 0o600)
	if err != nil {
		return fmt.Errorf("open identities file: %w", err)
	}
	if _, err := f.WriteString(private + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write identities file: %w", err)
	}
	return f.Close()
}
