// Package crypto binds the password store to age X25519 encryption and
// guards the private identities behind a passphrase-sealed keystore.
package crypto

import "errors"

var (
	// ErrInvalidRecipient means the recipient id does not parse as an
	// age X25519 public key.
	ErrInvalidRecipient = errors.New("crypto: invalid recipient id")
	// ErrNoIdentities means no private identities are available, so
	// nothing can be decrypted.
	ErrNoIdentities = errors.New("crypto: no identities available")
	// ErrDecryptFailed covers malformed ciphertext and ciphertext that
	// none of the loaded identities can open.
	ErrDecryptFailed = errors.New("crypto: decrypt failed")
)

// Gateway seals secret values for a recipient identity and opens stored
// ciphertexts again. Ciphertext is printable and safe for a TEXT column.
// Implementations fail loudly; they never return partial output.
type Gateway interface {
	Encrypt(plaintext []byte, recipientID string) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}
