package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgon2KeystoreKEKKAT(t *testing.T) {
	t.Parallel()

	passphrase := []byte("correct horse battery staple")
	salt := []byte("0123456789abcdef0123456789abcdef")
	params := Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 1,
		SaltLen:     32,
		KeyLen:      32,
	}

	got, err := DeriveKeystoreKEK(passphrase, salt, params)
	require.NoError(t, err)
	require.Equal(t, mustDecodeHex(t, "d12ac228e1566ecd9f80cf05621657ee1b5b34e40133438917d7ed334641f455"), got)
}

func TestDeriveKeystoreKEKRejectsBadInput(t *testing.T) {
	t.Parallel()

	params := DefaultArgon2Params()
	salt := make([]byte, params.SaltLen)

	_, err := DeriveKeystoreKEK(nil, salt, params)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	_, err = DeriveKeystoreKEK([]byte("pw"), salt[:8], params)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)

	short := params
	short.Memory = MinArgon2MemoryKiB - 1
	_, err = DeriveKeystoreKEK([]byte("pw"), salt, short)
	require.ErrorIs(t, err, ErrInvalidArgon2Params)
}

func TestDefaultArgon2ParamsAreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultArgon2Params().Validate())
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}
