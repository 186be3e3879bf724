package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vodchella/ppass/internal/app"
)

func newAuditCommand(deps commandDeps) *cobra.Command {
	var (
		action string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the store operation log",
		Long:  "Show recorded store operations in chronological order. Secret values never appear in the log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, deps, false, func(ctx context.Context, rt serviceRuntime) error {
				events, err := rt.svc.Audit(ctx, app.AuditQuery{Action: action, Limit: limit})
				if err != nil {
					return err
				}

				if asJSON {
					out := make([]map[string]any, 0, len(events))
					for _, event := range events {
						out = append(out, map[string]any{
							"id":        event.ID,
							"timestamp": event.Timestamp.UTC().Format(time.RFC3339),
							"action":    event.Action,
							"target":    event.Target,
							"details":   json.RawMessage(event.DetailsJSON),
						})
					}
					return printJSON(deps.out, out)
				}

				for _, event := range events {
					if _, err := fmt.Fprintf(deps.out, "%s  %-13s  %-12s  %s\n",
						event.Timestamp.UTC().Format(time.RFC3339),
						event.Action,
						event.Target,
						event.DetailsJSON,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Filter by action, for example secret.save")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events to print (0 prints up to 1000)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON")
	return cmd
}
