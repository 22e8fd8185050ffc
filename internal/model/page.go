package model

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Page is a URL that answered with a successful (2xx) status.
type Page struct {
	// URL is the normalized address (scheme, host and path only).
	URL string `json:"url"`

	// StatusCode is the HTTP status returned for the page.
	StatusCode int `json:"status_code"`

	// ContentType is the media type reported by the server.
	ContentType string `json:"content_type,omitempty"`

	// Digest is the SHA3-256 digest of the page body, hex encoded.
	// History comparison uses it to detect pages whose content changed.
	Digest string `json:"digest,omitempty"`

	// Links is the number of internal links discovered on the page.
	Links int `json:"links"`
}

// ComputeDigest returns the hex-encoded SHA3-256 digest of body.
// An empty body yields an empty digest.
func ComputeDigest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// FailureKind classifies why a fetch attempt failed.
type FailureKind string

const (
	// FailureTransport covers connection errors, DNS failures and timeouts.
	FailureTransport FailureKind = "transport"

	// FailureStatus covers responses with a non-2xx status code.
	FailureStatus FailureKind = "status"
)

// Failure is a URL whose fetch attempt did not succeed.
// A failed URL is never retried within the same run.
type Failure struct {
	// URL is the normalized address that failed.
	URL string `json:"url"`

	// Kind is the failure category.
	Kind FailureKind `json:"kind"`

	// StatusCode is the HTTP status for FailureStatus, zero otherwise.
	StatusCode int `json:"status_code,omitempty"`

	// Reason is a human-readable description of the failure.
	Reason string `json:"reason"`
}
