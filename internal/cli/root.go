// Package cli wires the ppass commands: cobra dispatch, interactive
// prompts, and the mapping from store errors to process exit codes.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	StorePath      string
	ConfigPath     string
	IdentitiesPath string
	Debug          bool
}

type commandDeps struct {
	out     io.Writer
	errOut  io.Writer
	prompt  *prompter
	globals *GlobalOptions
	build   BuildInfo
}

func NewRootCommand(out, errOut io.Writer, in io.Reader, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{
		out:     out,
		errOut:  errOut,
		prompt:  newPrompter(in, out, errOut),
		globals: globals,
		build:   build,
	}

	cmd := &cobra.Command{
		Use:           "ppass",
		Short:         "ppass stores, retrieves and generates passwords securely",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		// Bare ppass lists the store, like pass does.
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return runLs(cmd, deps)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(in)
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&globals.StorePath, "store", "", "Path of the password store file")
	pf.StringVar(&globals.ConfigPath, "config", "", "Path of the config file")
	pf.StringVar(&globals.IdentitiesPath, "identities", "", "Path of the age identities file")
	pf.BoolVar(&globals.Debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newInitCommand(deps))
	cmd.AddCommand(newLsCommand(deps))
	cmd.AddCommand(newInsertCommand(deps))
	cmd.AddCommand(newShowCommand(deps))
	cmd.AddCommand(newAuditCommand(deps))
	cmd.AddCommand(newClipClearCommand(deps))
	cmd.AddCommand(newVersionCommand(deps))
	cmd.InitDefaultCompletionCmd()
	return cmd
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(deps.out)
				enc.SetIndent("", "  ")
				return enc.Encode(deps.build)
			}

			_, err := fmt.Fprintf(deps.out, "version=%s commit=%s build_time=%s\n",
				deps.build.Version, deps.build.Commit, deps.build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}
