package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/app"
)

func newInsertCommand(deps commandDeps) *cobra.Command {
	var (
		force       bool
		login       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "insert <pass-name>",
		Short: "Insert a new password into the password store",
		Long: `Insert a new password into the password store called pass-name.
The password is read from standard input without echo. Prompts before
overwriting an existing password unless --force or -f is specified.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("insert requires exactly one password name")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withService(cmd, deps, false, func(ctx context.Context, rt serviceRuntime) error {
				exists, err := rt.svc.Exists(ctx, name)
				if err != nil {
					return err
				}
				if exists && !force {
					overwrite, err := confirmOverwrite(deps, name)
					if err != nil {
						return err
					}
					if !overwrite {
						return nil
					}
				}

				value, err := promptNewPassword(deps, name)
				if err != nil {
					return err
				}

				req := app.SaveRequest{Name: name, Value: value}
				// An explicitly passed empty --login clears the field;
				// an absent flag carries the previous value forward.
				if cmd.Flags().Changed("login") {
					req.Login = &login
				}
				if cmd.Flags().Changed("description") {
					req.Description = &description
				}
				_, err = rt.svc.Save(ctx, req)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Don't prompt before overwriting an existing password")
	cmd.Flags().StringVar(&login, "login", "", "Login associated with the password")
	cmd.Flags().StringVar(&description, "description", "", "Free form description of the password")
	return cmd
}
