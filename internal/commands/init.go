package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/debs/internal/auditlog"
	"github.com/cleared-dev/debs/internal/config"
	"github.com/cleared-dev/debs/internal/session"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger",
		Long: "Writes " + config.FileName + " and creates an empty ledger database.\n" +
			"With --key the ledger is protected by that key from the start.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) > 0 {
				path = filepath.Join(args[0], config.FileName)
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			opts.configPath = absPath
			return runInit(cmd, opts)
		},
	}
	return cmd
}

func runInit(cmd *cobra.Command, opts *globalOptions) error {
	if exists(opts.configPath) {
		return fmt.Errorf("%s already exists", opts.configPath)
	}
	dir := filepath.Dir(opts.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfg := config.Default(dir)
	if err := config.Save(opts.configPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	key := config.Key(opts.key)
	// A fresh store has no key yet, so it unlocks with an empty one.
	err := opts.withKey(cmd, "", func(s *session.Session) error {
		if key == "" {
			return nil
		}
		if err := s.ChangeKey(cmd.Context(), key); err != nil {
			return err
		}
		audit(cmd, s, auditlog.ActionSetKey, 0, 0, "initial key")
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger at %s\n", dir)
	return nil
}
