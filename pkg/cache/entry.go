package cache

import (
	"net/http"
	"time"
)

// Entry represents a cached HTTP response.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// ETag of the response (as sent, quotes included)
	ETag string `json:"etag,omitempty"`

	// LastModified is the Last-Modified header value
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry stops being served. Zero means the entry
	// lives until invalidated.
	Expires time.Time `json:"expires"`

	// Tags group the entry for bulk invalidation
	Tags []string `json:"tags,omitempty"`

	// Public mirrors the Cache-Control visibility of the response
	Public bool `json:"public"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// HasExpiry returns true if the entry carries an absolute expiry.
func (e *Entry) HasExpiry() bool {
	return !e.Expires.IsZero()
}

// ExpiredAt returns true if the entry is expired at the given instant.
// An entry is expired at and after its expiry timestamp.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return e.HasExpiry() && !now.Before(e.Expires)
}

// TTL returns the time until expiration measured from now.
// Returns 0 if already expired or if the entry has no expiry.
func (e *Entry) TTL(now time.Time) time.Duration {
	if !e.HasExpiry() {
		return 0
	}
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
