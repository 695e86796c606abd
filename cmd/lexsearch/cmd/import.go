package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/configs"
	lexerrors "github.com/Aman-CERP/lexsearch/internal/errors"
	"github.com/Aman-CERP/lexsearch/internal/lexicon"
	"github.com/Aman-CERP/lexsearch/internal/output"
)

// importOptions holds CLI flags for import.
type importOptions struct {
	sample bool
	format string
}

// importSummary is the JSON form of a finished import.
type importSummary struct {
	Source   string  `json:"source"`
	Entries  int     `json:"entries"`
	Values   int     `json:"values"`
	Backend  string  `json:"backend"`
	Duration float64 `json:"duration_ms"`
}

func newImportCmd(root *rootFlags) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a lexicon file",
		Long: `Import a YAML or JSON lexicon file, replacing the current lexicon.

Without a file argument, lexicon.source from the configuration is used.
The import runs in one transaction; on any error the previous lexicon is kept.

Examples:
  lexsearch import ./jmdict.yaml
  lexsearch import --sample
  LEXSEARCH_INDEX_BACKEND=bleve lexsearch import ./jmdict.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runImport(cmd.Context(), cmd, root, path, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.sample, "sample", false, "Import the built-in sample lexicon")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, root *rootFlags, path string, opts importOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	if path == "" && !opts.sample {
		path = cfg.Lexicon.Source
	}
	if path == "" && !opts.sample {
		return lexerrors.ConfigError("no lexicon file to import", errors.New("lexicon.source is not set")).
			WithSuggestion("Pass a file, set lexicon.source in .lexsearch.yaml, or use --sample")
	}

	lex, err := openLexicon(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lex.Close() }()

	var stats *lexicon.ImportStats
	source := path
	if opts.sample {
		source = "sample"
		stats, err = importSample(ctx, lex)
	} else {
		stats, err = lex.ImportFile(ctx, path)
	}
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if format == output.FormatJSON {
		return out.JSON(importSummary{
			Source:   source,
			Entries:  stats.Entries,
			Values:   stats.Values,
			Backend:  string(lex.Backend()),
			Duration: float64(stats.Duration) / float64(time.Millisecond),
		})
	}

	out.Successf("Imported %d entries (%d values) from %s", stats.Entries, stats.Values, source)
	out.Status("", fmt.Sprintf("Database: %s", cfg.Lexicon.DBPath))
	out.Status("", fmt.Sprintf("Index:    %s", lex.Backend()))
	out.Status("", fmt.Sprintf("Took:     %s", stats.Duration.Round(time.Millisecond)))
	return nil
}

func importSample(ctx context.Context, lex *lexicon.Lexicon) (*lexicon.ImportStats, error) {
	entries, err := lexicon.Parse([]byte(configs.SampleLexicon), "yaml")
	if err != nil {
		return nil, err
	}
	return lex.Import(ctx, entries, "sample")
}
