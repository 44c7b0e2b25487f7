// Package commands is the ajoctl operations CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ajosave/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(env *Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ajoctl",
		Short:   "AjoSave operations: settlement jobs, balances and maturity",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newJobsCommand(env))
	rootCmd.AddCommand(newBalanceCommand(env))
	rootCmd.AddCommand(newMaturityCommand(env))

	return rootCmd
}
