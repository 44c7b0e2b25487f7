package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ajosave/internal/service"
)

func newBalanceCommand(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Fold a user's transactions into wallet and plan balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			repo, err := env.Repo()
			if err != nil {
				return err
			}
			wallet := service.NewWallet(service.Options{Repo: repo, Now: env.Now})
			snap, _, err := wallet.Snapshot(cmd.Context(), uint(userID))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "wallet\t%s\t\n", snap.Balance.StringFixed(2))
			for _, p := range snap.Plans {
				status := p.Plan.Status
				if p.Maturity != nil {
					switch {
					case p.Maturity.IsMatured:
						status += ", matured"
					case p.Maturity.IsDueSoon:
						status += fmt.Sprintf(", due in %d days", p.Maturity.DaysRemaining)
					}
				}
				fmt.Fprintf(tw, "plan %d (%s)\t%s\t%s\n", p.Plan.ID, p.Plan.PlanType.Code, p.Balance.StringFixed(2), status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")

	return cmd
}
