package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// TextWriter writes the plain report file: a Markdown-flavoured header with
// the seed and page count, followed by the sorted valid pages.
//
//	# Crawl Results
//
//	**Crawled URL:** https://example.com/
//
//	**Total Pages Found:** 2
//
//	---
//
//	- https://example.com/
//	- https://example.com/about
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *TextWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	sb.WriteString("# Crawl Results\n\n")
	sb.WriteString("**Crawled URL:** " + result.Seed + "\n")
	sb.WriteString("\n**Total Pages Found:** " + strconv.Itoa(result.TotalPages()) + "\n\n")
	sb.WriteString("---\n\n")
	for _, u := range result.ValidPages() {
		sb.WriteString("- " + u + "\n")
	}

	return io.WriteString(w.output, sb.String())
}
