package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filippo.io/age"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	keystoreMagic   = "ppass-keystore"
	keystoreVersion = 1

	keystoreKeyInfo     = "ppass/keystore/enc/v1"
	keystoreEnvelopeAAD = "ppass/keystore/envelope/v1"
)

var (
	// ErrNotKeystore means the file is not a sealed keystore envelope.
	ErrNotKeystore = errors.New("crypto: not a sealed keystore")
	// ErrBadPassphrase covers both a wrong passphrase and a tampered
	// envelope. The AEAD cannot tell the two apart.
	ErrBadPassphrase = errors.New("crypto: bad passphrase or corrupted keystore")
)

// keystoreEnvelope is the on-disk JSON wrapper around sealed identities.
type keystoreEnvelope struct {
	Magic       string `json:"magic"`
	Version     int    `json:"version"`
	Memory      uint32 `json:"argon2_memory"`
	Iterations  uint32 `json:"argon2_iterations"`
	Parallelism uint8  `json:"argon2_parallelism"`
	Salt        string `json:"salt"`
	Nonce       string `json:"nonce"`
	Sealed      string `json:"sealed"`
}

// SealKeystore encrypts the body of an age identities file under a
// passphrase and writes the envelope to path with owner-only
// permissions. Sealing over an existing keystore replaces it.
func SealKeystore(path string, identities []byte, passphrase []byte, params Argon2Params) error {
	if len(bytes.TrimSpace(identities)) == 0 {
		return errors.New("crypto: no identities to seal")
	}
	if err := params.Validate(); err != nil {
		return err
	}

	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate keystore salt: %w", err)
	}

	kek, err := DeriveKeystoreKEK(passphrase, salt, params)
	if err != nil {
		return err
	}
	kekBuf := memguard.NewBufferFromBytes(kek)
	defer kekBuf.Destroy()

	key, err := deriveKeystoreKey(kekBuf.Bytes())
	if err != nil {
		return err
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return fmt.Errorf("init keystore cipher: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate keystore nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, identities, []byte(keystoreEnvelopeAAD))

	envelope := keystoreEnvelope{
		Magic:       keystoreMagic,
		Version:     keystoreVersion,
		Memory:      params.Memory,
		Iterations:  params.Iterations,
		Parallelism: params.Parallelism,
		Salt:        hex.EncodeToString(salt),
		Nonce:       hex.EncodeToString(nonce),
		Sealed:      hex.EncodeToString(sealed),
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keystore envelope: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

// IsKeystore reports whether path holds a sealed keystore envelope.
func IsKeystore(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var envelope keystoreEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return false
	}
	return envelope.Magic == keystoreMagic
}

// OpenKeystore decrypts the envelope at path and parses the age
// identities inside it. The decrypted bytes are held in locked memory
// and wiped before returning.
func OpenKeystore(path string, passphrase []byte) ([]age.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoIdentities, path)
		}
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var envelope keystoreEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Magic != keystoreMagic {
		return nil, ErrNotKeystore
	}
	if envelope.Version != keystoreVersion {
		return nil, fmt.Errorf("crypto: unsupported keystore version %d", envelope.Version)
	}

	salt, err := hex.DecodeString(envelope.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrNotKeystore)
	}
	nonce, err := hex.DecodeString(envelope.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce encoding", ErrNotKeystore)
	}
	sealed, err := hex.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload encoding", ErrNotKeystore)
	}

	params := Argon2Params{
		Memory:      envelope.Memory,
		Iterations:  envelope.Iterations,
		Parallelism: envelope.Parallelism,
		SaltLen:     len(salt),
		KeyLen:      DefaultArgon2KeyLen,
	}
	kek, err := DeriveKeystoreKEK(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	kekBuf := memguard.NewBufferFromBytes(kek)
	defer kekBuf.Destroy()

	key, err := deriveKeystoreKey(kekBuf.Bytes())
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("init keystore cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(keystoreEnvelopeAAD))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPassphrase, err)
	}
	buf := memguard.NewBufferFromBytes(plaintext)
	defer buf.Destroy()

	identities, err := age.ParseIdentities(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse sealed identities: %w", err)
	}
	return identities, nil
}

// deriveKeystoreKey expands the KEK into the XChaCha20-Poly1305 key with
// HKDF-SHA256 under a fixed domain-separation label.
func deriveKeystoreKey(kek []byte) (*memguard.LockedBuffer, error) {
	if len(kek) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("crypto: kek must be %d bytes, got %d", chacha20poly1305.KeySize, len(kek))
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, kek, nil, []byte(keystoreKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		memguard.WipeBytes(key)
		return nil, fmt.Errorf("derive keystore key: %w", err)
	}
	return memguard.NewBufferFromBytes(key), nil
}
