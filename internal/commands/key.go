package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/session"
)

func newKeyCommand(opts *globalOptions) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the unlock key",
	}
	keyCmd.AddCommand(&cobra.Command{
		Use:   "set [new-key]",
		Short: "Set the unlock key, or remove it when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newKey := ""
			if len(args) > 0 {
				newKey = args[0]
			}
			return opts.withSession(cmd, func(s *session.Session) error {
				protected, err := s.Protected(cmd.Context())
				if err != nil {
					return err
				}
				if newKey == "" && !protected {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger has no key")
					return nil
				}
				if err := s.ChangeKey(cmd.Context(), newKey); err != nil {
					return err
				}
				if newKey == "" {
					audit(cmd, s, auditlog.ActionSetKey, 0, 0, "removed")
					fmt.Fprintln(cmd.OutOrStdout(), "Key removed")
					return nil
				}
				if !protected {
					audit(cmd, s, auditlog.ActionSetKey, 0, 0, "set")
					fmt.Fprintln(cmd.OutOrStdout(), "Key set")
					return nil
				}
				audit(cmd, s, auditlog.ActionSetKey, 0, 0, "changed")
				fmt.Fprintln(cmd.OutOrStdout(), "Key changed")
				return nil
			})
		},
	})
	return keyCmd
}
