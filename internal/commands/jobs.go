package commands

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/service"
)

func newJobsCommand(env *Env) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Settlement procedures",
	}
	jobsCmd.AddCommand(newJobsListCommand())
	jobsCmd.AddCommand(newJobsRunCommand(env))
	return jobsCmd
}

func newJobsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the callable settlement procedures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			procs := rpc.Procedures()
			for _, name := range rpc.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", name, procs[name])
			}
			return nil
		},
	}
}

func newJobsRunCommand(env *Env) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "run <name> [args...]",
		Short: "Run a settlement procedure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs []any
			if asOf != "" {
				day, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
				}
				callArgs = append(callArgs, day.Format("2006-01-02"))
			}
			for _, a := range args[1:] {
				callArgs = append(callArgs, a)
			}
			return runJob(cmd, env, args[0], callArgs)
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "settlement date passed as the first argument (YYYY-MM-DD)")

	return cmd
}

func runJob(cmd *cobra.Command, env *Env, name string, args []any) error {
	procs, err := env.Procs()
	if err != nil {
		return err
	}
	var events realtime.Publisher
	if env.Events != nil {
		if events, err = env.Events(); err != nil {
			// Servers will serve cached reads until their TTL runs out.
			logrus.WithError(err).Warn("Change events unavailable")
			events = nil
		}
	}
	admin := service.NewAdmin(service.Options{Events: events, Now: env.Now}, procs)
	res, err := admin.RunJob(cmd.Context(), 0, name, args...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows affected in %s\n", res.Procedure, res.RowsAffected, res.Duration.Round(time.Millisecond))
	return nil
}
