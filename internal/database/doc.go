// Package database stores the history of crawl runs in SQLite.
//
// Each finished run is saved with its valid pages (including a content
// digest) and its failed URLs. The history command lists past runs and
// compares the two latest runs of a seed to show pages that were added,
// removed or changed.
//
// The history is never consulted by a crawl. A run always starts from the
// seed alone, so there is no resume and no visited set shared across runs.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database file
// lives in the XDG data directory (~/.local/share/sitecrawl/sitecrawl.db).
package database
