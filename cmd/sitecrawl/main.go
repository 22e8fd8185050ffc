// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls every page reachable from a seed URL on the same host,
// visiting each page once, and writes the list of pages that answered
// successfully to a timestamped report file.
//
// Usage:
//
//	sitecrawl crawl https://example.com/
//	sitecrawl history https://example.com/
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
