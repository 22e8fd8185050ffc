package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ConsoleWriter prints results for a terminal. Counts are formatted with
// thousands separators.
type ConsoleWriter struct {
	baseWriter
	printer *message.Printer
}

// NewConsoleWriter creates a ConsoleWriter that outputs to the given writer.
func NewConsoleWriter(output io.Writer) *ConsoleWriter {
	return &ConsoleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
}

// Write prints the finished banner and the sorted valid pages, one per line.
func (w *ConsoleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	if result.Cancelled {
		w.printer.Fprintf(&sb, "\n⚠️  Interrupted! Found %d internal pages before stopping:\n\n", result.TotalPages())
	} else {
		w.printer.Fprintf(&sb, "\n✅ Finished! Found %d total internal pages:\n\n", result.TotalPages())
	}
	for _, u := range result.ValidPages() {
		sb.WriteString(u + "\n")
	}
	if n := len(result.Failures); n > 0 {
		w.printer.Fprintf(&sb, "\n%d URL(s) could not be fetched.\n", n)
	}

	return io.WriteString(w.output, sb.String())
}

// WriteSaved prints where the report file was written.
func (w *ConsoleWriter) WriteSaved(path string) (int, error) {
	return w.printer.Fprintf(w.output, "\n📁 Results saved to: %s\n", path)
}

// WriteSeeds prints the seeds that have stored runs.
func (w *ConsoleWriter) WriteSeeds(seeds []string) (int, error) {
	var sb strings.Builder
	if len(seeds) == 0 {
		sb.WriteString("No crawl history found.\n")
		sb.WriteString("\nUse 'sitecrawl crawl <url>' to crawl a site.\n")
		return io.WriteString(w.output, sb.String())
	}

	w.printer.Fprintf(&sb, "Crawled seeds (%d):\n\n", len(seeds))
	for _, s := range seeds {
		sb.WriteString("  • " + s + "\n")
	}
	sb.WriteString("\nUse 'sitecrawl history <url>' to see the runs for a seed.\n")
	return io.WriteString(w.output, sb.String())
}

// WriteRuns prints the run history of seed, newest first.
func (w *ConsoleWriter) WriteRuns(seed string, runs []model.RunSummary) (int, error) {
	var sb strings.Builder
	if len(runs) == 0 {
		w.printer.Fprintf(&sb, "No crawl history found for %s\n", seed)
		return io.WriteString(w.output, sb.String())
	}

	w.printer.Fprintf(&sb, "Crawl history for %s (%d runs):\n\n", seed, len(runs))
	w.printer.Fprintf(&sb, "  %-6s  %-20s  %8s  %8s  %s\n", "ID", "Date", "Pages", "Failed", "Duration")
	sb.WriteString("  " + strings.Repeat("-", 60) + "\n")
	for _, r := range runs {
		duration := r.Duration().Round(time.Second).String()
		if r.Cancelled {
			duration += " (interrupted)"
		}
		// IDs are typed back into commands, so they are never digit-grouped.
		w.printer.Fprintf(&sb, "  %-6s  %-20s  %8d  %8d  %s\n",
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Pages,
			r.Failures,
			duration,
		)
	}
	sb.WriteString("\nUse 'sitecrawl history --diff <url>' to compare the latest two runs.\n")
	return io.WriteString(w.output, sb.String())
}

// WriteDiff prints the pages added, removed and changed between two runs.
func (w *ConsoleWriter) WriteDiff(older, newer model.RunSummary, diff *model.ResultDiff) (int, error) {
	var sb strings.Builder

	w.printer.Fprintf(&sb, "Comparing run %d (%s) with run %d (%s)\n\n",
		older.ID, older.StartedAt.Local().Format("2006-01-02 15:04"),
		newer.ID, newer.StartedAt.Local().Format("2006-01-02 15:04"),
	)
	w.printer.Fprintf(&sb, "Pages: %d -> %d\n", older.Pages, newer.Pages)

	if !diff.HasChanges() {
		sb.WriteString("\nNo differences.\n")
		return io.WriteString(w.output, sb.String())
	}

	sections := []struct {
		title  string
		marker string
		urls   []string
	}{
		{"Added", "+", diff.Added},
		{"Removed", "-", diff.Removed},
		{"Changed", "~", diff.Changed},
	}
	for _, s := range sections {
		if len(s.urls) == 0 {
			continue
		}
		w.printer.Fprintf(&sb, "\n%s (%d):\n", s.title, len(s.urls))
		for _, u := range s.urls {
			sb.WriteString("  " + s.marker + " " + u + "\n")
		}
	}
	return io.WriteString(w.output, sb.String())
}
