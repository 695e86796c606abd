package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexsearch/internal/output"
)

func newStatsCmd(root *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show lexicon statistics",
		Long: `Show the size of the imported lexicon, where it came from and which
fallback index serves it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, root, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, root *rootFlags, format string) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
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

	st, err := lex.Stats(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if f == output.FormatJSON {
		return out.JSON(st)
	}
	// Query metrics live in the serving process, so the CLI has none.
	out.Stats(st, nil)
	return nil
}
