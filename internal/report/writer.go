package report

import (
	"fmt"
	"io"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Writer writes a crawl result in one output format.
type Writer interface {
	// Write outputs the result to the configured destination.
	// It returns the number of bytes written.
	Write(result *model.CrawlResult) (int, error)
}

// Format is a report file format.
type Format string

// Supported report formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// NewWriter returns the Writer for format. version is recorded by formats
// that carry metadata.
func NewWriter(format Format, output io.Writer, version string) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(version)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// FileName returns the report file name for a crawl finished at now,
// e.g. crawler_output_20250102_150405.txt.
func FileName(now time.Time, ext string) string {
	return "crawler_output_" + now.Format("20060102_150405") + "." + ext
}

// MultiWriter writes the same result to several Writers, e.g. the terminal
// listing and the report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to every Writer in order and stops at the first
// error. The returned count is the total across writers.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
