// Package headers computes HTTP cache validation and freshness headers
// (Expires, ETag, Last-Modified, Cache-Control) for API resources.
package headers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrMissingUpdatedAt is returned when single-resource headers are requested
// for a resource without an update timestamp. It is a caller bug: such
// resources cannot be validated and must not get defaulted headers.
var ErrMissingUpdatedAt = errors.New("resource has no updatedAt")

// Cache-Control values.
const (
	CacheControlPublic  = "public"
	CacheControlPrivate = "private, must-revalidate"
)

// compactTimestamp formats list ETags (e.g. 20260301100000).
const compactTimestamp = "20060102150405"

// Resource is an entity that can be served with validation headers.
type Resource interface {
	// ResourceType is the entity type name used in ETags (e.g. "Product")
	ResourceType() string

	// ResourceID is the entity identifier
	ResourceID() int64

	// UpdatedAt is the last modification time; zero means unknown
	UpdatedAt() time.Time
}

// Set is a computed set of cache headers. Zero fields are omitted.
type Set struct {
	Expires      time.Time
	ETag         string // opaque tag, unquoted
	LastModified time.Time
	Public       bool
}

// Header renders the set.
func (s Set) Header() http.Header {
	return Build(s.Expires, s.ETag, s.LastModified, s.Public)
}

// Apply writes the set onto h, replacing existing values.
func (s Set) Apply(h http.Header) {
	for key, values := range s.Header() {
		h[key] = values
	}
}

// Policy computes header sets. It reads the current time from now.
type Policy struct {
	now func() time.Time
}

// NewPolicy creates a header policy. A nil clock means time.Now.
func NewPolicy(now func() time.Time) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{now: now}
}

// ForSingleResource returns the headers of a single-resource view:
// ETag "{Type}{ID}{UpdatedAt unix}", Last-Modified = UpdatedAt,
// Expires = now + expiresIn, public.
func (p *Policy) ForSingleResource(expiresIn time.Duration, res Resource) (Set, error) {
	updatedAt := res.UpdatedAt()
	if updatedAt.IsZero() {
		return Set{}, fmt.Errorf("%w: %s %d", ErrMissingUpdatedAt, res.ResourceType(), res.ResourceID())
	}

	return Set{
		Expires:      p.now().Add(expiresIn),
		ETag:         res.ResourceType() + strconv.FormatInt(res.ResourceID(), 10) + strconv.FormatInt(updatedAt.Unix(), 10),
		LastModified: updatedAt,
		Public:       true,
	}, nil
}

// ForList returns the headers of a collection view:
// ETag "Paginated{Type}{now as 20060102150405}", Last-Modified = now,
// Expires = now + expiresIn, public.
func (p *Policy) ForList(expiresIn time.Duration, typeName string) Set {
	now := p.now()
	return Set{
		Expires:      now.Add(expiresIn),
		ETag:         "Paginated" + typeName + now.UTC().Format(compactTimestamp),
		LastModified: now,
		Public:       true,
	}
}

// Build assembles cache headers. Expires, ETag and Last-Modified are set
// only when non-zero; Cache-Control is always set. Timestamps use the
// HTTP date format in GMT and the ETag is sent as a strong validator.
func Build(expires time.Time, etag string, lastModified time.Time, public bool) http.Header {
	h := make(http.Header, 4)

	if !expires.IsZero() {
		h.Set("Expires", FormatTime(expires))
	}
	if etag != "" {
		h.Set("ETag", strconv.Quote(etag))
	}
	if !lastModified.IsZero() {
		h.Set("Last-Modified", FormatTime(lastModified))
	}

	if public {
		h.Set("Cache-Control", CacheControlPublic)
	} else {
		h.Set("Cache-Control", CacheControlPrivate)
	}
	return h
}

// FormatTime formats t as an HTTP date (RFC 1123, GMT).
func FormatTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
