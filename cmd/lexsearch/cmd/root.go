// Package cmd provides the CLI commands for lexsearch.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/config"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/logging"
	"github.com/Aman-CERP/lexsearch/internal/profiling"
	"github.com/Aman-CERP/lexsearch/pkg/version"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	debug    bool
	dir      string
	profile  profiling.Flags
	session  *profiling.Session
	logClean func()
}

// NewRootCmd creates the root command for the lexsearch CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "lexsearch",
		Short: "Multilingual lexicon lookup",
		Long: `lexsearch looks up words in a Japanese-English lexicon.

A query may be kanji, kana, English or a mix. Exact matches rank first,
then partial matches by length. When nothing matches directly, the query
is normalized (and English is stemmed) and matched against a full-text index.

Import a lexicon once, then search from the shell or serve it to AI
assistants over MCP:

  lexsearch import ./lexicon.yaml
  lexsearch search 食べ
  lexsearch serve`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("lexsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging to ~/.lexsearch/logs/")
	cmd.PersistentFlags().StringVar(&flags.dir, "dir", "", "Project directory holding .lexsearch.yaml (default: nearest project root)")
	cmd.PersistentFlags().StringVar(&flags.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = flags.start
	cmd.PersistentPostRunE = flags.stop

	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newImportCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// start enables debug logging and profiling if requested.
func (f *rootFlags) start(_ *cobra.Command, _ []string) error {
	if f.debug {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		f.logClean = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if f.profile.Enabled() {
		s, err := profiling.Start(f.profile)
		if err != nil {
			return err
		}
		f.session = s
	}
	return nil
}

// stop flushes profiles and closes the debug log.
func (f *rootFlags) stop(_ *cobra.Command, _ []string) error {
	err := f.session.Stop()
	f.session = nil

	if f.logClean != nil {
		f.logClean()
		f.logClean = nil
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// projectDir returns --dir, or the project root above the working directory.
func (f *rootFlags) projectDir() string {
	if f.dir != "" {
		return f.dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return cwd
	}
	return root
}

// loadConfig loads the merged configuration for the project directory.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	return config.Load(f.projectDir())
}

// openLexicon opens the configured lexicon, creating the data directory.
func openLexicon(ctx context.Context, cfg *config.Config) (*lexicon.Lexicon, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Lexicon.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return lexicon.Open(ctx, lexiconOptions(cfg))
}

func lexiconOptions(cfg *config.Config) lexicon.Options {
	return lexicon.Options{
		DBPath:    cfg.Lexicon.DBPath,
		Backend:   cfg.Lexicon.IndexBackend,
		BlevePath: cfg.Lexicon.BlevePath,
		CacheSize: cfg.Lexicon.CacheSize,
	}
}
