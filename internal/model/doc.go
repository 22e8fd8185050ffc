// Package model defines the data structures shared by the crawler, the report
// writers and the history database.
//
// The main types are:
//   - CrawlResult: the outcome of one crawl run (valid pages, failures, timing)
//   - Page: a page that answered with a 2xx status
//   - Failure: a URL whose fetch attempt failed
//   - ResultDiff: the difference between two crawl runs of the same seed
//   - RunSummary: one stored run as listed by the history command
//
// Models are serializable to JSON for report output and database storage.
package model
