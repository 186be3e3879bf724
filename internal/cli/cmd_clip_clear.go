package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/clipboard"
)

// newClipClearCommand is the detached helper behind show --clip. It is
// hidden from help output; users are not expected to run it directly.
func newClipClearCommand(deps commandDeps) *cobra.Command {
	var (
		delay       time.Duration
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:    "clip-clear",
		Short:  "Clear the clipboard after a delay",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fingerprint == "" {
				return usageErrorf("clip-clear requires --fingerprint")
			}
			time.Sleep(delay)
			_, err := clipboard.ClearIfOwned(fingerprint)
			return mapCommandError(err)
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", 45*time.Second, "How long to wait before clearing")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Clear only while the clipboard matches this content fingerprint")
	return cmd
}
