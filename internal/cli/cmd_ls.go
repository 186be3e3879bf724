package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/console"
)

func newLsCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [subfolder]",
		Short: "List passwords",
		Long:  "List the stored passwords as a tree. Subfolder filtering is not implemented yet; extra arguments are ignored.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd, deps)
		},
	}
}

func runLs(cmd *cobra.Command, deps commandDeps) error {
	return withService(cmd, deps, false, func(ctx context.Context, rt serviceRuntime) error {
		snapshot, err := rt.svc.Tree(ctx)
		if err != nil {
			return err
		}
		return console.RenderTree(deps.out, snapshot.Groups, snapshot.Entries)
	})
}
