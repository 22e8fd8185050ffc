package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// createTestResult creates a result with sample data for testing.
func createTestResult() *model.CrawlResult {
	result := model.NewCrawlResult("https://example.com", "example.com")
	result.StartedAt = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	result.FinishedAt = result.StartedAt.Add(3 * time.Second)
	result.Pages = []model.Page{
		{URL: "https://example.com/zeta", StatusCode: 200},
		{URL: "https://example.com", StatusCode: 200},
		{URL: "https://example.com/about", StatusCode: 200},
	}
	result.Failures = []model.Failure{
		{URL: "https://example.com/gone", Kind: model.FailureStatus, StatusCode: 404, Reason: "unexpected HTTP status: 404 Not Found"},
	}
	result.Visited = []string{
		"https://example.com",
		"https://example.com/about",
		"https://example.com/zeta",
		"https://example.com/gone",
	}
	return result
}

// TestTextWriter tests the default report file format.
func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and sorted pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewTextWriter(&buf).Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "# Crawl Results\n\n" +
			"**Crawled URL:** https://example.com\n" +
			"\n**Total Pages Found:** 3\n\n" +
			"---\n\n" +
			"- https://example.com\n" +
			"- https://example.com/about\n" +
			"- https://example.com/zeta\n"
		if buf.String() != want {
			t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
		}
		if n != len(want) {
			t.Errorf("expected %d bytes, got %d", len(want), n)
		}
	})

	t.Run("empty result has no page lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(model.NewCrawlResult("https://example.com/", "example.com")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "**Total Pages Found:** 0") {
			t.Errorf("expected zero count, got:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "\n- ") {
			t.Errorf("expected no page lines, got:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary, pages and failures", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Crawl Results",
			"Total Pages Found",
			"## Pages",
			"https://example.com/about",
			"## Failed URLs",
			"https://example.com/gone",
			"404",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("omits failure table when nothing failed", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.Failures = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "## Failed URLs") {
			t.Error("expected no failure section")
		}
	})

	t.Run("writes diff sections", func(t *testing.T) {
		t.Parallel()

		diff := &model.ResultDiff{
			Added:   []string{"https://example.com/new"},
			Removed: []string{},
			Changed: []string{"https://example.com/about"},
		}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteDiff("https://example.com", diff); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "## Added") || !strings.Contains(output, "## Changed") {
			t.Errorf("expected added and changed sections, got:\n%s", output)
		}
		if strings.Contains(output, "## Removed") {
			t.Error("expected empty removed section to be omitted")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON with sorted pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Version != "v1.2.3" {
			t.Errorf("expected version v1.2.3, got %q", got.Version)
		}
		if got.TotalPages != 3 {
			t.Errorf("expected 3 pages, got %d", got.TotalPages)
		}
		if got.ValidPages[0] != "https://example.com" {
			t.Errorf("expected sorted pages, got %v", got.ValidPages)
		}
		if got.Result == nil || len(got.Result.Failures) != 1 {
			t.Error("expected the full result to be embedded")
		}
	})

	t.Run("compact output is a single line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected single line output, got:\n%s", buf.String())
		}
	})

	t.Run("writes diff", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		diff := &model.ResultDiff{Added: []string{"https://example.com/new"}, Removed: []string{}, Changed: []string{}}
		if _, err := NewJSONWriter(&buf).WriteDiff(diff); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), `"added":["https://example.com/new"]`) {
			t.Errorf("unexpected output %s", buf.String())
		}
	})

	t.Run("empty listings are arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		if _, err := w.WriteRuns(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.WriteSeeds(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[]\n[]\n" {
			t.Errorf("expected empty arrays, got %q", buf.String())
		}
	})
}

// TestConsoleWriter tests the terminal listing.
func TestConsoleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes banner and pages", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "✅ Finished! Found 3 total internal pages:") {
			t.Errorf("expected banner, got:\n%s", output)
		}
		if !strings.Contains(output, "https://example.com/zeta\n") {
			t.Errorf("expected page listing, got:\n%s", output)
		}
		if !strings.Contains(output, "1 URL(s) could not be fetched.") {
			t.Errorf("expected failure count, got:\n%s", output)
		}
	})

	t.Run("formats large counts with separators", func(t *testing.T) {
		t.Parallel()

		result := model.NewCrawlResult("https://example.com/", "example.com")
		for range 1234 {
			result.Pages = append(result.Pages, model.Page{URL: "https://example.com/p"})
		}

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Found 1,234 total") {
			t.Errorf("expected grouped count, got first line %q", strings.SplitN(buf.String(), "\n", 3)[1])
		}
	})

	t.Run("marks interrupted runs", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.Cancelled = true

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).Write(result); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Interrupted") {
			t.Errorf("expected interrupted banner, got:\n%s", buf.String())
		}
	})

	t.Run("writes run history", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
		runs := []model.RunSummary{
			{ID: 2, Seed: "https://example.com/", StartedAt: start, FinishedAt: start.Add(time.Minute), Pages: 10},
			{ID: 1, Seed: "https://example.com/", StartedAt: start, FinishedAt: start.Add(time.Minute), Pages: 8, Failures: 2},
		}

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).WriteRuns("https://example.com/", runs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "(2 runs)") {
			t.Errorf("expected run count, got:\n%s", buf.String())
		}
	})

	t.Run("run ids are not digit grouped", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
		runs := []model.RunSummary{
			{ID: 12345, Seed: "https://example.com/", StartedAt: start, FinishedAt: start.Add(time.Minute), Pages: 12345},
		}

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).WriteRuns("https://example.com/", runs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "\n  12345   ") {
			t.Errorf("expected plain run id, got:\n%s", out)
		}
		if !strings.Contains(out, "12,345") {
			t.Errorf("expected grouped page count, got:\n%s", out)
		}
	})

	t.Run("writes empty seed list", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).WriteSeeds(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No crawl history found.") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("writes diff markers", func(t *testing.T) {
		t.Parallel()

		diff := &model.ResultDiff{
			Added:   []string{"https://example.com/new"},
			Removed: []string{"https://example.com/old"},
			Changed: []string{},
		}

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).WriteDiff(model.RunSummary{ID: 1}, model.RunSummary{ID: 2}, diff); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "+ https://example.com/new") || !strings.Contains(output, "- https://example.com/old") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})
}

// failingWriter always fails.
type failingWriter struct{}

func (failingWriter) Write(*model.CrawlResult) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewTextWriter(&a), NewConsoleWriter(&b))
		n, err := m.Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != a.Len()+b.Len() {
			t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		m := NewMultiWriter(failingWriter{}, NewTextWriter(&buf))
		if _, err := m.Write(createTestResult()); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestNewWriter tests the format factory.
func TestNewWriter(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatText, FormatMarkdown, FormatJSON} {
		if _, err := NewWriter(format, &bytes.Buffer{}, "dev"); err != nil {
			t.Errorf("NewWriter(%q) failed: %v", format, err)
		}
	}
	if _, err := NewWriter("pdf", &bytes.Buffer{}, "dev"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// TestFileName tests report file naming.
func TestFileName(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	if got := FileName(now, FormatText.Extension()); got != "crawler_output_20250102_150405.txt" {
		t.Errorf("unexpected file name %q", got)
	}
	if got := FileName(now, FormatMarkdown.Extension()); got != "crawler_output_20250102_150405.md" {
		t.Errorf("unexpected file name %q", got)
	}
	if got := FileName(now, FormatJSON.Extension()); got != "crawler_output_20250102_150405.json" {
		t.Errorf("unexpected file name %q", got)
	}
}
