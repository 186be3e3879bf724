package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/console"
	"github.com/vodchella/ppass/internal/crypto"
	"github.com/vodchella/ppass/internal/storage"
)

func newInitCommand(deps commandDeps) *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "init <recipient-id>",
		Short: "Initialize the password store for an age recipient",
		Long: `Initialize a new password store encrypted for the given age recipient.
Running init against an existing store reencrypts every stored password
for the new recipient instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if generate {
				if len(args) != 0 {
					return usageErrorf("init --generate does not take a recipient id")
				}
				return nil
			}
			if len(args) != 1 {
				return usageErrorf("init requires exactly one recipient id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, true, func(ctx context.Context, rt serviceRuntime) error {
				var recipient string
				if generate {
					var err error
					recipient, err = generateStoredIdentity(deps, rt.cfg.Identities.File)
					if err != nil {
						return err
					}
				} else {
					recipient = args[0]
				}

				result, err := rt.svc.Init(ctx, recipient, &rotateProgressBar{out: deps.out})
				if err != nil {
					return err
				}
				if result.Rotated {
					_, err = fmt.Fprintf(deps.out, "Password store reencrypted for %s\n", result.RecipientID)
					return err
				}
				_, err = fmt.Fprintf(deps.out, "Password store initialized for %s\n", result.RecipientID)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&generate, "generate", false, "Generate a new age identity and initialize for it")
	return cmd
}

// generateStoredIdentity creates a fresh identity, persists its private
// key next to any existing ones, and returns the public recipient id.
func generateStoredIdentity(deps commandDeps, path string) (string, error) {
	if crypto.IsKeystore(path) {
		return "", fmt.Errorf("identities file %s is a sealed keystore, add the generated key to it by hand", path)
	}

	recipient, private, err := crypto.GenerateIdentity()
	if err != nil {
		return "", err
	}

	_, statErr := os.Stat(path)
	switch {
	case errors.Is(statErr, fs.ErrNotExist):
		err = crypto.WriteIdentitiesFile(path, private)
	case statErr != nil:
		return "", fmt.Errorf("stat identities file: %w", statErr)
	default:
		err = crypto.AppendIdentitiesFile(path, private)
	}
	if err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(deps.out, "New identity saved to %s\n", path); err != nil {
		return "", err
	}
	return recipient, nil
}

// rotateProgressBar adapts rotation callbacks to the console bar. The
// settings update counts as one extra step, so rotating an empty store
// renders nothing.
type rotateProgressBar struct {
	out io.Writer
	bar *console.ProgressBar
}

func (p *rotateProgressBar) RotateProgress(state storage.RotateState, row, total int) {
	if p.bar == nil {
		p.bar = console.NewProgressBar(p.out, total+1)
		p.bar.Update(0)
	}
	switch state {
	case storage.RotateRowWritten:
		p.bar.Update(row)
	case storage.RotateCommitted:
		p.bar.Update(total + 1)
	}
}
