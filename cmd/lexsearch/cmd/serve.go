package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/lexsearch/internal/config"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/logging"
	"github.com/Aman-CERP/lexsearch/internal/mcp"
	"github.com/Aman-CERP/lexsearch/internal/search"
	"github.com/Aman-CERP/lexsearch/internal/telemetry"
	"github.com/Aman-CERP/lexsearch/internal/watcher"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over MCP (stdio)",
		Long: `Start the MCP server on stdin/stdout.

stdout carries JSON-RPC only; logs go to ~/.lexsearch/logs/server.log.

With --watch (or server.watch: true), the lexicon source file is
re-imported after it changes. A failed re-import keeps the previous lexicon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watch
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-import lexicon.source when it changes")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	cleanup, err := logging.SetupServerMode(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lex, err := openLexicon(ctx, cfg)
	if err != nil {
		slog.Error("lexicon_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = lex.Close() }()

	metrics := telemetry.NewQueryMetrics()
	engine, err := search.NewEngine(lex.Store(),
		search.Config{MaxResults: cfg.Search.MaxResults},
		search.WithMetrics(metrics),
		search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(engine, lex, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()
	srv.SetMetrics(metrics)

	var w *watcher.SourceWatcher
	if cfg.Server.Watch {
		w, err = newSourceWatcher(cfg, lex)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The watcher has nothing to do once the client disconnects.
		defer cancel()
		return ignoreCanceled(srv.Serve(gctx, cfg.Server.Transport))
	})
	if w != nil {
		g.Go(func() error {
			return ignoreCanceled(w.Run(gctx))
		})
	}

	return g.Wait()
}

// newSourceWatcher re-imports lexicon.source whenever it changes.
func newSourceWatcher(cfg *config.Config, lex *lexicon.Lexicon) (*watcher.SourceWatcher, error) {
	if cfg.Lexicon.Source == "" {
		return nil, errors.New("--watch needs lexicon.source to be set")
	}
	debounce, err := cfg.WatchDebounce()
	if err != nil {
		return nil, err
	}

	opts := watcher.DefaultOptions()
	opts.DebounceWindow = debounce

	return watcher.NewSourceWatcher(cfg.Lexicon.Source, opts, func(ctx context.Context, ev watcher.FileEvent) error {
		if ev.Operation == watcher.OpDelete {
			slog.Warn("lexicon_source_removed", slog.String("path", ev.Path))
			return nil
		}
		_, err := lex.ImportFile(ctx, ev.Path)
		return err
	})
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
