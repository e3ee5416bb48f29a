package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/currency"
	"github.com/cleared-dev/debs/internal/ledger"
	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/session"
	"github.com/cleared-dev/debs/internal/statement"
)

func newAccountCommand(opts *globalOptions) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	accountCmd.AddCommand(
		newAccountCreateCommand(opts),
		newAccountCloseCommand(opts),
		newAccountListCommand(opts),
		newAccountCandidatesCommand(opts),
	)
	return accountCmd
}

func newAccountCreateCommand(opts *globalOptions) *cobra.Command {
	var typ, name, opened string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParseAccountType(typ)
			if err != nil {
				t = model.AccountType(typ) // rejected by the ledger with the field name
			}
			on, err := model.ParseDate(opened)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				id, err := s.Ledger.CreateAccount(cmd.Context(), ledger.CreateAccountParams{Type: t, Name: name, OpenedOn: on})
				if err != nil {
					return err
				}
				audit(cmd, s, auditlog.ActionCreateAccount, id, 0, fmt.Sprintf("%s %s", t, name))
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "equity, asset, liability, income or expense (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opened, "opened", "", "opening date YYYY-MM-DD (default today)")

	return cmd
}

func newAccountCloseCommand(opts *globalOptions) *cobra.Command {
	var on string

	cmd := &cobra.Command{
		Use:   "close <account-id>",
		Short: "Close an account with zero balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account id")
			if err != nil {
				return err
			}
			closeDate, err := model.ParseDate(on)
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				if err := s.Ledger.CloseAccount(cmd.Context(), id, closeDate); err != nil {
					return err
				}
				audit(cmd, s, auditlog.ActionCloseAccount, id, 0, model.FormatDate(closeDate))
				fmt.Fprintf(cmd.OutOrStdout(), "Closed account %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&on, "date", "", "closing date YYYY-MM-DD (default today)")

	return cmd
}

func newAccountListCommand(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show accounts with balances, grouped by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session) error {
				o, err := s.Statements.Overview(cmd.Context())
				if err != nil {
					return err
				}
				printOverview(cmd.OutOrStdout(), s.Codec, o, all)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include closed accounts")

	return cmd
}

func printOverview(out io.Writer, c currency.Codec, o statement.Overview, withClosed bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, g := range o.Groups {
		fmt.Fprintf(w, "%s\t\t%s\t\n", g.Label(), c.Format(g.Total))
		for _, a := range g.Accounts {
			fmt.Fprintf(w, "%d\t%s\t%s\t\n", a.ID, a.Name, c.Format(a.Balance))
		}
	}
	if withClosed && len(o.Closed) > 0 {
		fmt.Fprintf(w, "Closed\t\t\t\n")
		for _, a := range o.Closed {
			fmt.Fprintf(w, "%d\t%s\t%s\t\n", a.ID, a.Name, model.FormatDate(a.ClosedOn))
		}
	}
	_ = w.Flush()

	if o.EquationHolds() {
		fmt.Fprintln(out, "Accounting equation holds.")
	} else {
		fmt.Fprintf(out, "Accounting equation is off by %s.\n", c.Format(o.Imbalance))
	}
}

func newAccountCandidatesCommand(opts *globalOptions) *cobra.Command {
	var exclude int64

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "List open accounts that can be used as counter-accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session.Session) error {
				groups, err := s.Statements.CounterAccounts(cmd.Context(), exclude)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, g := range groups {
					fmt.Fprintf(w, "%s\n", g.Label())
					for _, a := range g.Accounts {
						fmt.Fprintf(w, "  %d\t%s\n", a.ID, a.Name)
					}
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().Int64Var(&exclude, "exclude", 0, "account id to leave out")

	return cmd
}
