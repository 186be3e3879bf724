package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/clipboard"
	"github.com/vodchella/ppass/internal/console"
	"github.com/vodchella/ppass/internal/storage"
)

func newShowCommand(deps commandDeps) *cobra.Command {
	var (
		history bool
		full    bool
		clip    bool
	)

	cmd := &cobra.Command{
		Use:   "show <pass-name>",
		Short: "Decrypt and print a password",
		Long: `Decrypt and print a password named pass-name and optionally put it on
the clipboard. Print full info if --full or -f is specified. Print info
about old passwords if --history is specified.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("show requires exactly one password name")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withService(cmd, deps, true, func(ctx context.Context, rt serviceRuntime) error {
				switch {
				case history:
					return runShowHistory(ctx, deps, rt, name)
				case full:
					return runShowFull(ctx, deps, rt, name)
				default:
					revealed, err := rt.svc.Reveal(ctx, name)
					if errors.Is(err, storage.ErrNotFound) {
						return notFoundError(name, err)
					}
					if err != nil {
						return err
					}
					defer memguard.WipeBytes(revealed.Value)

					if clip {
						return copyToClipboard(ctx, deps, rt, name, revealed.Value)
					}
					_, err = fmt.Fprintln(deps.out, string(revealed.Value))
					return err
				}
			})
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Print password history")
	cmd.Flags().BoolVarP(&full, "full", "f", false, "Print full password info")
	cmd.Flags().BoolVarP(&clip, "clip", "c", false, "Put the password on the clipboard for 45 seconds")
	return cmd
}

func runShowHistory(ctx context.Context, deps commandDeps, rt serviceRuntime, name string) error {
	progress := &decryptProgressBar{out: deps.out}
	items, err := rt.svc.History(ctx, name, progress.step)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundError(name, err)
	}
	if err != nil {
		return err
	}

	rows := make([]console.HistoryRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, console.HistoryRow{
			Current:     !item.Entry.Deleted,
			Value:       string(item.Value),
			CreatedAt:   item.Entry.CreatedAt,
			Login:       item.Entry.Login,
			Description: item.Entry.Description,
		})
	}
	renderErr := console.RenderHistoryTable(deps.out, rows)
	for _, item := range items {
		memguard.WipeBytes(item.Value)
	}
	return renderErr
}

func runShowFull(ctx context.Context, deps commandDeps, rt serviceRuntime, name string) error {
	revealed, err := rt.svc.Reveal(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundError(name, err)
	}
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(revealed.Value)

	return console.RenderDetailsTable(deps.out, console.DetailsRow{
		Value:       string(revealed.Value),
		CreatedAt:   revealed.Entry.CreatedAt,
		Login:       revealed.Entry.Login,
		Description: revealed.Entry.Description,
	})
}

func copyToClipboard(ctx context.Context, deps commandDeps, rt serviceRuntime, name string, value []byte) error {
	fingerprint, err := clipboard.Copy(value)
	if err != nil {
		return err
	}
	if err := rt.svc.RecordClip(ctx, name); err != nil {
		return err
	}

	wait := rt.cfg.Clipboard.ClearAfter
	if err := scheduleClipboardClear(wait, fingerprint); err != nil {
		return err
	}
	_, err = fmt.Fprintf(deps.out, "Copied %s to clipboard. Will clear in %d seconds.\n", name, int(wait.Seconds()))
	return err
}

// scheduleClipboardClear starts a detached helper process that clears
// the clipboard after delay unless someone replaced its content first.
func scheduleClipboardClear(delay time.Duration, fingerprint string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("schedule clipboard clear: resolve executable: %w", err)
	}
	cmd := exec.Command(executable, "clip-clear",
		"--delay", delay.String(),
		"--fingerprint", fingerprint,
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("schedule clipboard clear: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("schedule clipboard clear: release process: %w", err)
	}
	return nil
}

// decryptProgressBar renders the history decryption bar. The banner and
// the bar stay silent for a single version.
type decryptProgressBar struct {
	out io.Writer
	bar *console.ProgressBar
}

func (p *decryptProgressBar) step(done, total int) {
	if p.bar == nil {
		if total > 1 {
			fmt.Fprintln(p.out, "Decrypting passwords...")
		}
		p.bar = console.NewProgressBar(p.out, total)
		p.bar.Update(0)
	}
	p.bar.Update(done)
}
