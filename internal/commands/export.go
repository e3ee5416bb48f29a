package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/export"
	"github.com/cleared-dev/debs/internal/session"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <directory>",
		Short: "Write accounts.csv and legs.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session) error {
				if err := export.Dump(cmd.Context(), s.Store(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported ledger to %s\n", args[0])
				return nil
			})
		},
	}
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <directory>",
		Short: "Replay an export into an empty ledger",
		Long: "Replays accounts.csv and legs.csv through the normal ledger checks.\n" +
			"Account ids may change; every running balance must come out as exported.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, legs, err := export.Load(args[0])
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				res, err := export.Restore(cmd.Context(), s.Ledger, accounts, legs)
				if err != nil {
					return err
				}
				audit(cmd, s, auditlog.ActionImport, 0, 0,
					fmt.Sprintf("%s: %d accounts, %d transactions", args[0], res.Accounts, res.Transactions))
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts and %d transactions\n", res.Accounts, res.Transactions)
				return nil
			})
		},
	}
}
