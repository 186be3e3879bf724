package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeystoreSealOpenRoundTrip(t *testing.T) {
	t.Parallel()

	recipient, private, err := GenerateIdentity()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "identities.keystore")
	require.NoError(t, SealKeystore(path, []byte(private+"\n"), []byte("open sesame"), testArgon2Params()))

	identities, err := OpenKeystore(path, []byte("open sesame"))
	require.NoError(t, err)
	require.Len(t, identities, 1)

	gw := NewAgeGateway(identities)
	ciphertext, err := gw.Encrypt([]byte("hunter2"), recipient)
	require.NoError(t, err)
	plaintext, err := gw.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "hunter2", string(plaintext))
}

func TestKeystoreWrongPassphrase(t *testing.T) {
	t.Parallel()

	path := sealTestKeystore(t, "right")

	_, err := OpenKeystore(path, []byte("wrong"))
	require.ErrorIs(t, err, ErrBadPassphrase)
}

func TestKeystoreTamperedPayload(t *testing.T) {
	t.Parallel()

	path := sealTestKeystore(t, "pass")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(data, &envelope))
	sealed := envelope["sealed"].(string)
	flipped := byte('0')
	if sealed[len(sealed)-1] == '0' {
		flipped = '1'
	}
	envelope["sealed"] = sealed[:len(sealed)-1] + string(flipped)

	tampered, err := json.Marshal(envelope)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tampered, 0o600))

	_, err = OpenKeystore(path, []byte("pass"))
	require.ErrorIs(t, err, ErrBadPassphrase)
}

func TestIsKeystore(t *testing.T) {
	t.Parallel()

	sealed := sealTestKeystore(t, "pass")
	require.True(t, IsKeystore(sealed))

	_, private, err := GenerateIdentity()
	require.NoError(t, err)
	plain := filepath.Join(t.TempDir(), "identities.txt")
	require.NoError(t, WriteIdentitiesFile(plain, private))
	require.False(t, IsKeystore(plain))

	require.False(t, IsKeystore(filepath.Join(t.TempDir(), "missing")))
}

func TestOpenKeystoreRejectsPlainIdentitiesFile(t *testing.T) {
	t.Parallel()

	_, private, err := GenerateIdentity()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "identities.txt")
	require.NoError(t, WriteIdentitiesFile(path, private))

	_, err = OpenKeystore(path, []byte("pass"))
	require.ErrorIs(t, err, ErrNotKeystore)
}

func TestOpenKeystoreMissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenKeystore(filepath.Join(t.TempDir(), "missing"), []byte("pass"))
	require.ErrorIs(t, err, ErrNoIdentities)
}

func TestKeystoreFilePermissions0600OnUnix(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("file mode bits are not meaningful on windows")
	}

	path := sealTestKeystore(t, "pass")
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func sealTestKeystore(t *testing.T, passphrase string) string {
	t.Helper()

	_, private, err := GenerateIdentity()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "identities.keystore")
	require.NoError(t, SealKeystore(path, []byte(private+"\n"), []byte(passphrase), testArgon2Params()))
	return path
}

func testArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      MinArgon2MemoryKiB,
		Iterations:  1,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}
