package crypto

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// MinArgon2MemoryKiB is the floor below which stretching a passphrase
// stops being meaningfully expensive.
const MinArgon2MemoryKiB uint32 = 16 * 1024

// DefaultArgon2KeyLen matches the XChaCha20-Poly1305 key size used to
// seal the keystore payload.
const DefaultArgon2KeyLen uint32 = 32

const minSaltLen = 16

var ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")

// Argon2Params selects the Argon2id cost profile used to stretch the
// keystore passphrase.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     int
	KeyLen      uint32
}

// DefaultArgon2Params returns an interactive profile. The keystore is
// opened on every command, so memory stays moderate and parallelism is
// capped at 4.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: clampParallelism(runtime.NumCPU()),
		SaltLen:     32,
		KeyLen:      DefaultArgon2KeyLen,
	}
}

func clampParallelism(cpus int) uint8 {
	switch {
	case cpus < 1:
		return 1
	case cpus > 4:
		return 4
	default:
		return uint8(cpus)
	}
}

func (p Argon2Params) Validate() error {
	if p.Memory < MinArgon2MemoryKiB {
		return paramErr("memory must be >= %d KiB", MinArgon2MemoryKiB)
	}
	if p.Iterations == 0 {
		return paramErr("iterations must be > 0")
	}
	if p.Parallelism == 0 {
		return paramErr("parallelism must be > 0")
	}
	if p.SaltLen < minSaltLen {
		return paramErr("salt length must be >= %d", minSaltLen)
	}
	if p.KeyLen == 0 {
		return paramErr("key length must be > 0")
	}
	return nil
}

func paramErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgon2Params, fmt.Sprintf(format, args...))
}

// DeriveKeystoreKEK stretches a passphrase into the key-encryption key
// that seals the identities keystore.
func DeriveKeystoreKEK(passphrase []byte, salt []byte, params Argon2Params) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, paramErr("passphrase must not be empty")
	}
	if len(salt) < params.SaltLen {
		return nil, paramErr("salt must be at least %d bytes", params.SaltLen)
	}

	return argon2.IDKey(passphrase, salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen), nil
}
