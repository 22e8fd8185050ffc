package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/sitecrawl/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writePages(md, result)
	w.writeFailures(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the summary table and a status alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	md.H1("Crawl Results")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Crawled URL", "`" + result.Seed + "`"},
			{"Base Domain", "`" + result.BaseDomain + "`"},
			{"Started", formatTime(result.StartedAt)},
			{"Duration", result.Duration().Round(time.Millisecond).String()},
			{"Total Pages Found", strconv.Itoa(result.TotalPages())},
			{"Failed URLs", strconv.Itoa(len(result.Failures))},
			{"URLs Visited", strconv.Itoa(len(result.Visited))},
		},
	})
	md.PlainText("")

	switch {
	case result.Cancelled:
		md.Warningf("The crawl was interrupted. %d page(s) were found before it stopped.", result.TotalPages())
	case result.TotalPages() == 0:
		md.Cautionf("No page of %s could be fetched.", result.Seed)
	case len(result.Failures) > 0:
		md.Note(fmt.Sprintf("%d URL(s) could not be fetched. See Failed URLs below.", len(result.Failures)))
	default:
		md.Tip("Every discovered URL was fetched successfully.")
	}
	md.PlainText("")
}

// writePages writes the sorted list of valid pages.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Pages")
	md.PlainText("")

	if result.TotalPages() == 0 {
		md.PlainText("No pages found.")
		md.PlainText("")
		return
	}

	md.BulletList(result.ValidPages()...)
	md.PlainText("")
}

// writeFailures writes a table of URLs that could not be fetched.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.CrawlResult) {
	if len(result.Failures) == 0 {
		return
	}

	md.H2("Failed URLs")
	md.PlainText("")

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		status := "-"
		if f.StatusCode != 0 {
			status = strconv.Itoa(f.StatusCode)
		}
		rows[i] = []string{f.URL, string(f.Kind), status, truncateString(f.Reason, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Status", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteDiff outputs a comparison of two runs of the same seed.
func (w *MarkdownWriter) WriteDiff(seed string, diff *model.ResultDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Comparison")
	md.PlainText("")
	md.PlainTextf("Seed: `%s`", seed)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Change", "Pages"},
		Rows: [][]string{
			{"Added", strconv.Itoa(len(diff.Added))},
			{"Removed", strconv.Itoa(len(diff.Removed))},
			{"Changed", strconv.Itoa(len(diff.Changed))},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("No differences between the two runs.")
		md.PlainText("")
	}

	sections := []struct {
		title string
		urls  []string
	}{
		{"Added", diff.Added},
		{"Removed", diff.Removed},
		{"Changed", diff.Changed},
	}
	for _, s := range sections {
		if len(s.urls) == 0 {
			continue
		}
		md.H2(s.title)
		md.PlainText("")
		md.BulletList(s.urls...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}

// formatTime formats t for reports; the zero time renders as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
