package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcptoolbox/internal/config"
	"mcptoolbox/internal/logging"
	"mcptoolbox/internal/mcp"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/store"
)

// Exit codes
const (
	ExitSuccess              = 0
	ExitGenericError         = 1
	ExitConfigInvalid        = 2
	ExitToolHomeInaccessible = 3
	ExitBindFailure          = 4
	ExitJournalFailure       = 5
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath     string
	ToolHome       string
	LogLevel       string
	JSON           bool
	NonInteractive bool
	Quiet          bool
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	if strings.HasPrefix(err.Error(), "CONFIG_INVALID") {
		return ExitConfigInvalid
	}
	return ExitGenericError
}

type app struct {
	flags GlobalFlags
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mcp-toolbox",
		Short:         "MCP tool server for local files, Figma and Markdown conversion",
		Long:          "mcp-toolbox exposes chunked file reads, file edits, the Figma REST API and document-to-Markdown conversion as MCP tools over stdio or HTTP.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", "", "config file path (default: <tool-home>/config.toml)")
	pf.StringVar(&a.flags.ToolHome, "tool-home", "", "directory for config, journal and cache (default: "+config.DefaultToolHome+")")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.BoolVar(&a.flags.JSON, "json", false, "emit JSON output and JSON logs")
	pf.BoolVar(&a.flags.NonInteractive, "non-interactive", false, "disable prompts")
	pf.BoolVar(&a.flags.Quiet, "quiet", false, "reduce output")

	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newToolsCmd())
	root.AddCommand(a.newCallCmd())
	root.AddCommand(a.newHistoryCmd())
	root.AddCommand(a.newCacheCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(a.newVersionCmd())
	return root
}

// Execute runs the root command. Failures are printed to stderr; use
// ExitCode to turn the returned error into a process exit code.
func Execute() error {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, newTheme(os.Stderr, false).failure(), err)
	}
	return err
}

// loadConfig applies the global flags that were set on the command line on
// top of overrides and loads the effective config.
func (a *app) loadConfig(cmd *cobra.Command, overrides *config.Overrides, skipValidate bool) (*config.Config, error) {
	return a.load(cmd, config.Options{
		ConfigPath:   a.flags.ConfigPath,
		SkipValidate: skipValidate,
		Overrides:    overrides,
	})
}

func (a *app) load(cmd *cobra.Command, opts config.Options) (*config.Config, error) {
	overrides := opts.Overrides
	if overrides == nil {
		overrides = &config.Overrides{}
	}
	flags := cmd.Flags()
	if flags.Changed("tool-home") {
		overrides.ToolHome = &a.flags.ToolHome
	}
	if flags.Changed("log-level") {
		overrides.LogLevel = &a.flags.LogLevel
	}
	if flags.Changed("json") {
		overrides.LogJSON = &a.flags.JSON
	}
	opts.Overrides = overrides
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, withExitCode(ExitConfigInvalid, err)
	}
	return cfg, nil
}

func (a *app) newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	logger, _, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, withExitCode(ExitConfigInvalid, fmt.Errorf("CONFIG_INVALID: %w", err))
	}
	return logger, nil
}

// openJournal opens the SQLite journal when it is enabled. The returned
// journal is nil otherwise.
func openJournal(ctx context.Context, cfg *config.Config) (model.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		return nil, withExitCode(ExitToolHomeInaccessible, fmt.Errorf("create journal directory: %w", err))
	}
	st := store.NewSQLiteStore(cfg.Journal.Path)
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, withExitCode(ExitJournalFailure, fmt.Errorf("open journal: %w", err))
	}
	return st, nil
}

// requireJournal is openJournal for commands that only read the journal.
func requireJournal(ctx context.Context, cfg *config.Config) (model.Journal, error) {
	journal, err := openJournal(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, fmt.Errorf("%w: set journal.enabled = true or JOURNAL_ENABLED=true", model.ErrJournalDisabled)
	}
	return journal, nil
}

func closeJournal(journal model.Journal, logger *zap.Logger) {
	if journal == nil {
		return
	}
	if err := journal.Close(); err != nil && logger != nil {
		logger.Warn("closing journal failed", zap.Error(err))
	}
}

func newServer(cfg *config.Config, logger *zap.Logger, journal model.Journal) *mcp.Server {
	return mcp.NewServer(*cfg, mcp.Deps{
		Logger:  logger,
		Journal: journal,
		Version: version,
	})
}
