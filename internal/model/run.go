package model

import "time"

// RunSummary describes one stored crawl run without its page list.
type RunSummary struct {
	// ID identifies the run in the history database.
	ID int64 `json:"id"`

	// Seed is the URL the run started from.
	Seed string `json:"seed"`

	// BaseDomain is the network location of the seed.
	BaseDomain string `json:"base_domain"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Pages is the number of valid pages found.
	Pages int `json:"pages"`

	// Failures is the number of URLs that could not be fetched.
	Failures int `json:"failures"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Duration returns how long the run took.
func (r RunSummary) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
