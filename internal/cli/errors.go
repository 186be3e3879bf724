package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vodchella/ppass/internal/app"
	"github.com/vodchella/ppass/internal/clipboard"
	"github.com/vodchella/ppass/internal/config"
	"github.com/vodchella/ppass/internal/crypto"
	"github.com/vodchella/ppass/internal/storage"
)

const (
	ExitCodeSuccess           = 0
	ExitCodeGeneric           = 1
	ExitCodeUsage             = 2
	ExitCodeNotFound          = 3
	ExitCodeInvariant         = 4
	ExitCodeCrypto            = 5
	ExitCodeDependencyMissing = 6
	ExitCodeIO                = 7
)

// ExitError carries the process exit code through the cobra error
// return. Message, when set, replaces the wrapped error text on the
// console; the cause stays reachable through Unwrap.
type ExitError struct {
	Code    int
	Err     error
	Message string
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return &ExitError{
			Code:    ExitCodeDependencyMissing,
			Err:     err,
			Message: `password store is empty. Try "ppass init".`,
		}
	case errors.Is(err, storage.ErrCorruptSettings):
		return &ExitError{
			Code:    ExitCodeGeneric,
			Err:     err,
			Message: "password store is corrupted, can't get recipient id.",
		}
	case errors.Is(err, storage.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, storage.ErrSystemRow),
		errors.Is(err, storage.ErrEmptyValue),
		errors.Is(err, storage.ErrSchemaTooNew):
		return asExitError(ExitCodeInvariant, err)
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, crypto.ErrInvalidRecipient):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, crypto.ErrNoIdentities),
		errors.Is(err, clipboard.ErrUnavailable):
		return asExitError(ExitCodeDependencyMissing, err)
	case errors.Is(err, crypto.ErrDecryptFailed),
		errors.Is(err, crypto.ErrBadPassphrase),
		errors.Is(err, crypto.ErrNotKeystore),
		errors.Is(err, crypto.ErrInvalidArgon2Params):
		return asExitError(ExitCodeCrypto, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return asExitError(ExitCodeIO, err)
	}

	return asExitError(ExitCodeGeneric, err)
}

// notFoundError renders the pass-style missing entry message while
// keeping the storage sentinel in the chain.
func notFoundError(name string, err error) error {
	return &ExitError{
		Code:    ExitCodeNotFound,
		Err:     err,
		Message: fmt.Sprintf("%s is not in the password store.", name),
	}
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}
