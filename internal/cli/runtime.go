package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"filippo.io/age"
	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/app"
	"github.com/vodchella/ppass/internal/audit"
	"github.com/vodchella/ppass/internal/config"
	"github.com/vodchella/ppass/internal/crypto"
	"github.com/vodchella/ppass/internal/log"
	"github.com/vodchella/ppass/internal/storage"
)

// serviceRuntime bundles everything a command needs once the store is
// open: resolved config, the store handle, and the use case service.
type serviceRuntime struct {
	cfg    config.Config
	store  *storage.Store
	svc    *app.Service
	logger *slog.Logger
}

// withService loads config, opens the store, and runs fn against the
// assembled service. withIdentities controls whether the age identities
// file is loaded (and a sealed keystore unlocked); commands that only
// encrypt skip it so they never prompt for a passphrase.
func withService(cmd *cobra.Command, deps commandDeps, withIdentities bool, fn func(ctx context.Context, rt serviceRuntime) error) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(deps)
	if err != nil {
		return mapCommandError(err)
	}

	logger, closeLogger, err := log.NewLogger(log.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		Debug:     deps.globals != nil && deps.globals.Debug,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("build logger: %w", err))
	}
	defer func() {
		_ = closeLogger()
	}()

	var identities []age.Identity
	if withIdentities {
		identities, err = loadIdentities(cfg.Identities.File, deps)
		if err != nil {
			return mapCommandError(err)
		}
	}

	store, err := storage.Open(cfg.Store.Path)
	if err != nil {
		return mapCommandError(err)
	}
	defer func() {
		_ = store.Close()
	}()

	recorder, err := audit.NewRecorder(store.Audit)
	if err != nil {
		return mapCommandError(err)
	}
	svc := app.NewService(store, crypto.NewAgeGateway(identities), recorder, logger)

	return mapCommandError(fn(ctx, serviceRuntime{
		cfg:    cfg,
		store:  store,
		svc:    svc,
		logger: logger,
	}))
}

func loadConfig(deps commandDeps) (config.Config, error) {
	opts := config.LoadOptions{}
	if deps.globals != nil {
		opts.ConfigPath = deps.globals.ConfigPath
		opts.Flags = config.FlagOverrides{
			StorePath:      &deps.globals.StorePath,
			IdentitiesPath: &deps.globals.IdentitiesPath,
		}
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadIdentities reads the age identities from path. A missing file is
// not an error here: encryption only needs the recipient from settings,
// and decryption reports ErrNoIdentities on its own.
func loadIdentities(path string, deps commandDeps) ([]age.Identity, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat identities file: %w", err)
	}

	if crypto.IsKeystore(path) {
		passphrase, err := deps.prompt.Secret(fmt.Sprintf("Enter passphrase to unlock %s:", path))
		if err != nil {
			return nil, err
		}
		defer memguard.WipeBytes(passphrase)
		return crypto.OpenKeystore(path, passphrase)
	}
	return crypto.LoadIdentitiesFile(path)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
