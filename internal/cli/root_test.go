package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/require"
)

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	out, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "version=1.2.3")
	require.Contains(t, out, "commit=abc123")
	require.Contains(t, out, "build_time=2026-02-19T00:00:00Z")
}

func TestVersionCommandOutputsJSON(t *testing.T) {
	out, _, err := runCLI(t, "", "version", "--json")
	require.NoError(t, err)

	var payload BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Equal(t, "1.2.3", payload.Version)
	require.Equal(t, "abc123", payload.Commit)
}

func TestInitCreatesStore(t *testing.T) {
	storePath, _ := cliTestEnv(t)

	out, _, err := runCLI(t, "", "init", testRecipient(t))
	require.NoError(t, err)
	require.Contains(t, out, "Password store initialized for age1")

	_, err = os.Stat(storePath)
	require.NoError(t, err)
}

func TestInitGenerateRoundTrip(t *testing.T) {
	_, identitiesPath := cliTestEnv(t)

	out, _, err := runCLI(t, "", "init", "--generate")
	require.NoError(t, err)
	require.Contains(t, out, "New identity saved to "+identitiesPath)
	require.Contains(t, out, "Password store initialized for age1")

	_, _, err = runCLI(t, "hunter2\nhunter2\n", "insert", "gmail")
	require.NoError(t, err)

	out, _, err = runCLI(t, "", "show", "gmail")
	require.NoError(t, err)
	require.Equal(t, "hunter2\n", out)
}

func TestInitReencryptsExistingStore(t *testing.T) {
	_, identitiesPath := cliTestEnv(t)

	_, _, err := runCLI(t, "", "init", "--generate")
	require.NoError(t, err)
	_, _, err = runCLI(t, "hunter2\nhunter2\n", "insert", "gmail")
	require.NoError(t, err)

	// A second generate appends a new identity and rotates every row.
	out, _, err := runCLI(t, "", "init", "--generate")
	require.NoError(t, err)
	require.Contains(t, out, "Password store reencrypted for age1")

	raw, err := os.ReadFile(identitiesPath)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(raw), "AGE-SECRET-KEY-1"))

	out, _, err = runCLI(t, "", "show", "gmail")
	require.NoError(t, err)
	require.Equal(t, "hunter2\n", out)
}

func TestInsertAndShowRoundTrip(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	out, errOut, err := runCLI(t, "s3cret\ns3cret\n", "insert", "gmail")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Contains(t, errOut, "Enter password for gmail:")
	require.Contains(t, errOut, "Retype password for gmail:")

	out, _, err = runCLI(t, "", "show", "gmail")
	require.NoError(t, err)
	require.Equal(t, "s3cret\n", out)
}

func TestInsertRetriesUntilPasswordsMatch(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, errOut, err := runCLI(t, "one\ntwo\nsame\nsame\n", "insert", "db")
	require.NoError(t, err)
	require.Contains(t, errOut, "Error: the entered passwords do not match.")

	out, _, err := runCLI(t, "", "show", "db")
	require.NoError(t, err)
	require.Equal(t, "same\n", out)
}

func TestInsertOverwritePrompt(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "old\nold\n", "insert", "db")
	require.NoError(t, err)

	// Declining, including the empty default, keeps the stored value.
	out, _, err := runCLI(t, "\n", "insert", "db")
	require.NoError(t, err)
	require.Contains(t, out, "An entry already exists for db. Overwrite it? [y/N]")

	out, _, err = runCLI(t, "", "show", "db")
	require.NoError(t, err)
	require.Equal(t, "old\n", out)

	_, _, err = runCLI(t, "y\nnew\nnew\n", "insert", "db")
	require.NoError(t, err)

	out, _, err = runCLI(t, "", "show", "db")
	require.NoError(t, err)
	require.Equal(t, "new\n", out)
}

func TestInsertForceSkipsOverwritePrompt(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "old\nold\n", "insert", "db")
	require.NoError(t, err)

	out, _, err := runCLI(t, "new\nnew\n", "insert", "db", "--force")
	require.NoError(t, err)
	require.NotContains(t, out, "Overwrite it?")

	out, _, err = runCLI(t, "", "show", "db")
	require.NoError(t, err)
	require.Equal(t, "new\n", out)
}

func TestShowMissingName(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "", "show", "missing")
	require.Error(t, err)
	require.Equal(t, ExitCodeNotFound, exitCode(err))
	require.Equal(t, "missing is not in the password store.", err.Error())
}

func TestCommandsOnUninitializedStore(t *testing.T) {
	cliTestEnv(t)

	for _, args := range [][]string{{"show", "gmail"}, {"ls"}, {"audit"}} {
		_, _, err := runCLI(t, "", args...)
		require.Error(t, err, "args %v", args)
		require.Equal(t, ExitCodeDependencyMissing, exitCode(err), "args %v", args)
		require.Equal(t, `password store is empty. Try "ppass init".`, err.Error(), "args %v", args)
	}

	_, _, err := runCLI(t, "pw\npw\n", "insert", "gmail")
	require.Error(t, err)
	require.Equal(t, ExitCodeDependencyMissing, exitCode(err))
}

func TestLsRendersTreeAndIsDefaultAction(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "pw\npw\n", "insert", "mail/gmail")
	require.NoError(t, err)
	_, _, err = runCLI(t, "pw\npw\n", "insert", "db")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "ls")
	require.NoError(t, err)
	require.Contains(t, out, "[/]")
	require.Contains(t, out, "mail/gmail")
	require.Contains(t, out, "db")

	// Bare ppass behaves like ppass ls.
	bare, _, err := runCLI(t, "")
	require.NoError(t, err)
	require.Equal(t, out, bare)
}

func TestShowHistoryRendersSupersessions(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "first\nfirst\n", "insert", "db")
	require.NoError(t, err)
	_, _, err = runCLI(t, "second\nsecond\n", "insert", "db", "--force")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "show", "db", "--history")
	require.NoError(t, err)
	require.Contains(t, out, "Decrypting passwords...")
	require.Contains(t, out, "Progress: |")
	require.Contains(t, out, "Current")
	require.Contains(t, out, "first")
	require.Contains(t, out, "second")
	require.Equal(t, 1, strings.Count(out, "[x]"))
}

func TestShowFullRendersDetailsTable(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "pw\npw\n", "insert", "db", "--login", "bob", "--description", "staging db")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "show", "db", "--full")
	require.NoError(t, err)
	require.Contains(t, out, "pw")
	require.Contains(t, out, "bob")
	require.Contains(t, out, "staging db")
	require.NotContains(t, out, "Current")
}

func TestAuditRecordsOperations(t *testing.T) {
	cliTestEnv(t)
	initStore(t)

	_, _, err := runCLI(t, "Tr0ub4dor&3\nTr0ub4dor&3\n", "insert", "db")
	require.NoError(t, err)
	_, _, err = runCLI(t, "", "show", "db")
	require.NoError(t, err)

	out, _, err := runCLI(t, "", "audit")
	require.NoError(t, err)
	require.Contains(t, out, "store.init")
	require.Contains(t, out, "secret.save")
	require.Contains(t, out, "secret.reveal")
	require.NotContains(t, out, "Tr0ub4dor&3")

	out, _, err = runCLI(t, "", "audit", "--action", "secret.save")
	require.NoError(t, err)
	require.Contains(t, out, "secret.save")
	require.NotContains(t, out, "store.init")

	out, _, err = runCLI(t, "", "audit", "--json")
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.NotEmpty(t, events)
	require.Contains(t, events[0], "action")
}

func TestShowWithoutIdentitiesFails(t *testing.T) {
	_, identitiesPath := cliTestEnv(t)

	_, _, err := runCLI(t, "", "init", "--generate")
	require.NoError(t, err)
	_, _, err = runCLI(t, "pw\npw\n", "insert", "db")
	require.NoError(t, err)

	require.NoError(t, os.Remove(identitiesPath))

	_, _, err = runCLI(t, "", "show", "db")
	require.Error(t, err)
	require.Equal(t, ExitCodeDependencyMissing, exitCode(err))
}

func TestStoreFlagOverridesEnvironment(t *testing.T) {
	cliTestEnv(t)
	flagStore := filepath.Join(t.TempDir(), "flag-store.db")

	_, _, err := runCLI(t, "", "--store", flagStore, "init", testRecipient(t))
	require.NoError(t, err)

	_, err = os.Stat(flagStore)
	require.NoError(t, err)
}

func TestUnknownFlagReturnsUsageError(t *testing.T) {
	_, _, err := runCLI(t, "", "--no-such-flag")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func TestUnknownCommandReturnsUsageError(t *testing.T) {
	_, _, err := runCLI(t, "", "frobnicate")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func TestInitRequiresRecipientArgument(t *testing.T) {
	cliTestEnv(t)

	_, _, err := runCLI(t, "", "init")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, _, err = runCLI(t, "", "init", "--generate", "age1unwanted")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func TestInitRejectsInvalidRecipient(t *testing.T) {
	cliTestEnv(t)

	_, _, err := runCLI(t, "", "init", "not-a-recipient")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func TestClipClearRequiresFingerprint(t *testing.T) {
	_, _, err := runCLI(t, "", "clip-clear", "--delay", "0s")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut, strings.NewReader(stdin), testBuildInfo())
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// cliTestEnv pins every path the CLI touches inside a temp dir so a
// developer machine's real config, store, or identities never leak into
// assertions.
func cliTestEnv(t *testing.T) (storePath, identitiesPath string) {
	t.Helper()

	tmp := t.TempDir()
	storePath = filepath.Join(tmp, ".ppass-store")
	identitiesPath = filepath.Join(tmp, "identities.txt")
	t.Setenv("PPASS_CONFIG", filepath.Join(tmp, "config.toml"))
	t.Setenv("PPASS_HOME", tmp)
	t.Setenv("PPASS_STORE", storePath)
	t.Setenv("PPASS_IDENTITIES", identitiesPath)
	return storePath, identitiesPath
}

func initStore(t *testing.T) {
	t.Helper()

	_, _, err := runCLI(t, "", "init", "--generate")
	require.NoError(t, err)
}

func testRecipient(t *testing.T) string {
	t.Helper()

	id, err := age.GenerateX25519Identity()
	require.NoError(t, err)
	return id.Recipient().String()
}

func testBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildTime: "2026-02-19T00:00:00Z",
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return withExit.ExitCode()
	}
	return -1
}
