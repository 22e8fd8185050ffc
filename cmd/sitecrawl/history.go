package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/report"
)

// historyOptions holds the flags of the history command.
type historyOptions struct {
	diff      bool
	listSeeds bool
	json      bool
	markdown  bool
	dbDir     string
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [URL]",
		Short: "Show past crawl runs of a site",
		Long: `History lists the stored runs of a seed URL, newest first.

With --diff it compares the two latest runs and shows the pages that were
added, removed, or whose content changed. The history is only a record of
past runs; a new crawl always starts from scratch.

Examples:
  # List all seeds with stored runs
  sitecrawl history --list-seeds

  # List runs of a site
  sitecrawl history https://example.com/

  # Compare the two latest runs
  sitecrawl history --diff https://example.com/

  # Compare as Markdown
  sitecrawl history --diff --markdown https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("diff", false,
		"Compare the two latest runs of the URL")
	cmd.Flags().BoolP("list-seeds", "l", false,
		"List all seeds with stored runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output as Markdown, --diff only (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts := historyOptions{dbDir: config.XDGDataDir()}

	var err error
	if opts.diff, err = cmd.Flags().GetBool("diff"); err != nil {
		return err
	}
	if opts.listSeeds, err = cmd.Flags().GetBool("list-seeds"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}

	var seed string
	if len(args) > 0 {
		seed = args[0]
	}
	return runHistory(cmd.Context(), opts, seed, cmd.OutOrStdout())
}

// runHistory prints the requested history view for seed.
func runHistory(ctx context.Context, opts historyOptions, seed string, out io.Writer) error {
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if !opts.listSeeds && seed == "" {
		return errors.New("specify a URL or use --list-seeds")
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if opts.listSeeds {
			// No database yet means no history.
			_, werr := report.NewConsoleWriter(out).WriteSeeds(nil)
			return werr
		}
		return fmt.Errorf("no crawl history found (run 'sitecrawl crawl' first): %w", err)
	}
	defer db.Close()

	if opts.listSeeds {
		return listSeeds(ctx, db, opts, out)
	}

	startURL, err := crawler.NormalizeSeed(seed)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", seed, err)
	}

	if opts.diff {
		return showDiff(ctx, db, opts, startURL, out)
	}
	return listRuns(ctx, db, opts, startURL, out)
}

func listSeeds(ctx context.Context, db *database.CrawlDB, opts historyOptions, out io.Writer) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return err
	}
	if opts.json {
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteSeeds(seeds)
		return err
	}
	_, err = report.NewConsoleWriter(out).WriteSeeds(seeds)
	return err
}

func listRuns(ctx context.Context, db *database.CrawlDB, opts historyOptions, startURL string, out io.Writer) error {
	runs, err := db.ListRuns(ctx, startURL)
	if err != nil {
		return err
	}
	if opts.json {
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteRuns(runs)
		return err
	}
	_, err = report.NewConsoleWriter(out).WriteRuns(startURL, runs)
	return err
}

func showDiff(ctx context.Context, db *database.CrawlDB, opts historyOptions, startURL string, out io.Writer) error {
	cmp, err := db.CompareLatest(ctx, startURL)
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteDiff(cmp.Diff)
	case opts.markdown:
		_, err = report.NewMarkdownWriter(out).WriteDiff(startURL, cmp.Diff)
	default:
		_, err = report.NewConsoleWriter(out).WriteDiff(cmp.Older, cmp.Newer, cmp.Diff)
	}
	return err
}
