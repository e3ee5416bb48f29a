package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/debs/internal/buildinfo"
	"github.com/cleared-dev/debs/internal/config"
	"github.com/cleared-dev/debs/internal/session"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	key        string
	debug      bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:     "debs",
		Short:   "Double-entry bookkeeping ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.FileName, "configuration file")
	pf.StringVar(&opts.key, "key", "", "unlock key (default $"+config.EnvKey+")")
	pf.BoolVar(&opts.debug, "debug", false, "human-readable debug logging")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAccountCommand(opts),
		newPostCommand(opts),
		newDeleteCommand(opts),
		newStatementCommand(opts),
		newVerifyCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newKeyCommand(opts),
	)

	return rootCmd
}

// newLogger builds a JSON logger on stderr at the configured level, or a
// development logger at debug level with --debug.
func (o *globalOptions) newLogger(cfg *config.Config) (*zap.Logger, error) {
	if o.debug {
		return zap.NewDevelopment()
	}
	lvl, err := cfg.Log.ZapLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// withSession unlocks the ledger named by --config, runs fn, and closes it.
func (o *globalOptions) withSession(cmd *cobra.Command, fn func(s *session.Session) error) error {
	return o.withKey(cmd, config.Key(o.key), fn)
}

func (o *globalOptions) withKey(cmd *cobra.Command, key string, fn func(s *session.Session) error) error {
	path, err := filepath.Abs(o.configPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		return err
	}
	logger, err := o.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	s, err := session.Unlock(cmd.Context(), cfg, key, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// audit records a committed mutation. The mutation already happened, so a
// failure is only reported.
func audit(cmd *cobra.Command, s *session.Session, action string, accountID, xid int64, details string) {
	if err := s.Audit.Record(action, accountID, xid, details); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to write audit log: %v\n", err)
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
