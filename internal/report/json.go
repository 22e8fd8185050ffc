package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitecrawl/internal/model"
)

// JSONWriter outputs reports in JSON format for programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool

	indentPrefix string
	indentString string

	// version is recorded in the report envelope. Empty omits it.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the sitecrawl version in the report.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the envelope written by JSONWriter.
type JSONReport struct {
	// Version is the sitecrawl version that produced the report.
	Version string `json:"version,omitempty"`

	// TotalPages is the number of valid pages.
	TotalPages int `json:"total_pages"`

	// ValidPages are the sorted URLs of the valid pages.
	ValidPages []string `json:"valid_pages"`

	// Result is the full crawl result.
	Result *model.CrawlResult `json:"result"`
}

// Write implements Writer.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(&JSONReport{
		Version:    w.version,
		TotalPages: result.TotalPages(),
		ValidPages: result.ValidPages(),
		Result:     result,
	})
}

// WriteDiff outputs a comparison of two runs.
func (w *JSONWriter) WriteDiff(diff *model.ResultDiff) (int, error) {
	return w.writeJSON(diff)
}

// WriteRuns outputs a run history listing.
func (w *JSONWriter) WriteRuns(runs []model.RunSummary) (int, error) {
	if runs == nil {
		runs = []model.RunSummary{}
	}
	return w.writeJSON(runs)
}

// WriteSeeds outputs the seeds that have stored runs.
func (w *JSONWriter) WriteSeeds(seeds []string) (int, error) {
	if seeds == nil {
		seeds = []string{}
	}
	return w.writeJSON(seeds)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
