package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ajosave/internal/domain"
	"ajosave/internal/maturity"
)

func newMaturityCommand(env *Env) *cobra.Command {
	maturityCmd := &cobra.Command{
		Use:   "maturity",
		Short: "Plan maturity tools",
	}
	maturityCmd.AddCommand(newMaturityCalcCommand(env))
	maturityCmd.AddCommand(newMaturityReportCommand(env))
	return maturityCmd
}

// today resolves --as-of, defaulting to the environment clock.
func today(env *Env, asOf string) (time.Time, error) {
	if asOf == "" {
		return env.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", asOf, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func newMaturityCalcCommand(env *Env) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "calc <start-date> <duration-weeks>",
		Short: "Compute the maturity of a plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, err := strconv.Atoi(args[1])
			if err != nil || weeks < 0 {
				return fmt.Errorf("invalid duration %q", args[1])
			}
			now, err := today(env, asOf)
			if err != nil {
				return err
			}
			m := maturity.Calculate(args[0], weeks, now)
			if m == nil {
				return fmt.Errorf("invalid start date %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "maturity date:  %s\nmatured:        %t\ndue soon:       %t\ndays remaining: %d\n",
				m.MaturityDate.Format("2006-01-02"), m.IsMatured, m.IsDueSoon, m.DaysRemaining)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate on this date instead of today (YYYY-MM-DD)")

	return cmd
}

func newMaturityReportCommand(env *Env) *cobra.Command {
	var asOf string
	var all bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List active plans that are matured or due soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := today(env, asOf)
			if err != nil {
				return err
			}
			repo, err := env.Repo()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			types, err := repo.ListPlanTypes(ctx, false)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLAN\tTYPE\tUSER\tMATURES\tSTATE\t")
			for _, pt := range types {
				plans, err := repo.PlanInstancesByType(ctx, pt.ID)
				if err != nil {
					return err
				}
				for _, p := range plans {
					if p.Status != domain.PlanActive {
						continue
					}
					m := maturity.Calculate(p.StartDateISO(), p.DurationWeeks, now)
					if m == nil {
						continue
					}
					state := fmt.Sprintf("%d days left", m.DaysRemaining)
					switch {
					case m.IsMatured:
						state = "matured"
					case m.IsDueSoon:
						state = "due soon"
					case !all:
						continue
					}
					fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t\n", p.ID, pt.Code, p.UserID, m.MaturityDate.Format("2006-01-02"), state)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate on this date instead of today (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "include plans that are not yet due")

	return cmd
}
