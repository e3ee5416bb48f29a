package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/session"
)

func newVerifyCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the accounting equation and replay every running balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session) error {
				r, err := s.Ledger.CheckIntegrity(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if r.OK() {
					fmt.Fprintf(out, "OK: %d accounts, accounting equation holds\n", len(r.Balances))
					return nil
				}
				if r.Imbalance != 0 {
					fmt.Fprintf(out, "accounting equation off by %s\n", s.Codec.Format(r.Imbalance))
				}
				for _, d := range r.Discrepancies {
					fmt.Fprintln(out, d.String())
				}
				return fmt.Errorf("%w: %d discrepancies", ledger.ErrIntegrity, len(r.Discrepancies))
			})
		},
	}
}
