package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/model"
	"github.com/cleared-dev/debs/internal/session"
)

func newStatementCommand(opts *globalOptions) *cobra.Command {
	var from, to string
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "statement <account-id>",
		Short: "Show turnovers and history of an account",
		Long: "Shows the starting balance, debit and credit turnovers and ending balance\n" +
			"over a period (default: the account's lifetime), followed by one page of\n" +
			"transactions, most recent first. Rows marked * can be deleted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account id")
			if err != nil {
				return err
			}
			start, err := model.ParseDate(from)
			if err != nil {
				return err
			}
			end, err := model.ParseDate(to)
			if err != nil {
				return err
			}

			return opts.withSession(cmd, func(s *session.Session) error {
				ctx := cmd.Context()
				t, err := s.Statements.Turnovers(ctx, id, start, end)
				if err != nil {
					return err
				}
				h, err := s.Statements.History(ctx, id, pageSize, page)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				a := t.Account
				fmt.Fprintf(out, "%d %s (%s)", a.ID, a.Name, a.Type.Label())
				if !a.IsOpen() {
					fmt.Fprintf(out, ", closed %s", model.FormatDate(a.ClosedOn))
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%s .. %s\n", model.FormatDate(t.Start), model.FormatDate(t.End))

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Starting balance\t%s\n", s.Codec.Format(t.StartingBalance))
				fmt.Fprintf(w, "Debit\t%s\n", s.Codec.Format(t.Debit))
				fmt.Fprintf(w, "Credit\t%s\n", s.Codec.Format(t.Credit))
				fmt.Fprintf(w, "Ending balance\t%s\n", s.Codec.Format(t.EndingBalance))
				if err := w.Flush(); err != nil {
					return err
				}

				fmt.Fprintf(out, "\nPage %d of %d (%d transactions)\n", h.Page, h.TotalPages, h.TotalRows)
				w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "\tXID\tDATE\tCOUNTER-ACCOUNT\tDEBIT\tCREDIT\tBALANCE\tCOMMENT")
				for _, r := range h.Rows {
					mark := ""
					if r.Deletable {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%d %s\t%s\t%s\t%s\t%s\n",
						mark, r.XID, model.FormatDate(r.Date),
						r.CounterAccount.ID, r.CounterAccount.Name,
						r.DebitText, r.CreditText, r.BalanceText, r.Comment)
				}
				return w.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "period start YYYY-MM-DD")
	f.StringVar(&to, "to", "", "period end YYYY-MM-DD")
	f.IntVar(&page, "page", 1, "history page, 1 is the most recent")
	f.IntVar(&pageSize, "page-size", 0, "rows per page (default from config)")

	return cmd
}
