package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/output"
	"github.com/Aman-CERP/lexsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	format  string
	explain bool
}

func newSearchCmd(root *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Look up a word in the lexicon",
		Long: `Look up a word in the imported lexicon.

The query's script decides which fields are searched: kanji searches
spellings, kana searches readings, English searches glosses, and a mix
searches all three.

Examples:
  lexsearch search 食べ
  lexsearch search たべ --limit 5
  lexsearch search drinking --explain
  lexsearch search eat --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, root, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of entries, 1-50 (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show how the lookup was answered")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootFlags, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.limit < 0 || opts.limit > search.MaxResults {
		return fmt.Errorf("--limit must be between 1 and %d", search.MaxResults)
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	lex, err := openLexicon(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lex.Close() }()

	engine, err := search.NewEngine(lex.Store(),
		search.Config{MaxResults: cfg.Search.MaxResults},
		search.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	slog.Debug("search_started", slog.String("query", query), slog.Int("limit", opts.limit))

	resp, err := engine.Lookup(ctx, query, search.LookupOptions{Limit: opts.limit})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == output.FormatJSON {
		if !opts.explain {
			resp.Explain = nil
		}
		return out.JSON(resp)
	}
	out.Results(resp, opts.explain)
	return nil
}
