package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/session"
)

func newPostCommand(opts *globalOptions) *cobra.Command {
	var req ledger.PostRequest
	var account, counter string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a transaction between two accounts",
		Long: "Post a transaction between two accounts. Give exactly one of --debit,\n" +
			"--credit or --balance; amounts may be expressions such as \"12,50*3\".\n" +
			"--balance sets the account's balance after the post and derives the amount.",
		Example: `  debs post --account 1 --counter 4 --debit 100 --comment "cash sale"
  debs post --account 1 --counter 7 --balance "1 250,00" --date 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.AccountID, err = parseID(account, "account id"); err != nil {
				return err
			}
			if req.CounterAccountID, err = parseID(counter, "counter-account id"); err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				p, err := ledger.ParsePostRequest(s.Codec, req)
				if err != nil {
					return err
				}
				xid, err := s.Ledger.PostTransaction(cmd.Context(), p)
				if err != nil {
					return err
				}
				bal, err := s.Ledger.CurrentBalance(cmd.Context(), p.AccountID)
				if err != nil {
					return err
				}
				audit(cmd, s, auditlog.ActionPost, p.AccountID, xid,
					fmt.Sprintf("counter %d, balance %s", p.CounterAccountID, s.Codec.Format(bal)))
				fmt.Fprintf(cmd.OutOrStdout(), "Posted transaction %d, balance %s\n", xid, s.Codec.Format(bal))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&account, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	f.StringVar(&counter, "counter", "", "counter-account id (required)")
	_ = cmd.MarkFlagRequired("counter")
	f.StringVar(&req.Debit, "debit", "", "debit amount")
	f.StringVar(&req.Credit, "credit", "", "credit amount")
	f.StringVar(&req.Balance, "balance", "", "target balance of the account")
	f.StringVar(&req.Date, "date", "", "transaction date YYYY-MM-DD (default today)")
	f.StringVar(&req.Comment, "comment", "", "free-text comment")

	return cmd
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "delete <xid>",
		Short: "Delete the latest transaction of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xid, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			accountID, err := parseID(account, "account id")
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				if err := s.Ledger.DeleteTransaction(cmd.Context(), xid, accountID); err != nil {
					return err
				}
				audit(cmd, s, auditlog.ActionDelete, accountID, xid, "")
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %d\n", xid)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account the transaction is viewed from (required)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
