// Package report renders crawl results.
//
// Writers implement the Writer interface and can be combined with
// MultiWriter:
//   - TextWriter: the default report file, a header plus "- url" lines
//   - MarkdownWriter: summary table, page list and failed-URL table
//   - JSONWriter: the full result for tool integration
//   - ConsoleWriter: the terminal listing and history output
//
// Report files are named by FileName, e.g. crawler_output_20250102_150405.txt.
package report
