package cache

import (
	"net/http"
	"strings"
	"time"
)

// Header names read and written by the cache layer.
const (
	HeaderCacheControl = "Cache-Control"
	HeaderExpires      = "Expires"
	HeaderETag         = "ETag"
	HeaderLastModified = "Last-Modified"

	// HeaderXCache reports HIT or MISS on responses that went through the cache
	HeaderXCache = "X-Cache"
)

// perRequestHeaders belong to a single exchange and are never replayed
// from a cached entry.
var perRequestHeaders = []string{
	"Set-Cookie",
	"X-Request-Id",
	HeaderXCache,
}

// NewEntry builds a cache entry from a produced response.
// The expiry comes from the response's Expires header; see ParseExpires.
// Per-request headers such as Set-Cookie are left out of the entry.
func NewEntry(status int, header http.Header, body []byte, tags []string, now time.Time, fallbackTTL time.Duration) *Entry {
	stored := header.Clone()
	if stored == nil {
		stored = http.Header{}
	}
	for _, name := range perRequestHeaders {
		stored.Del(name)
	}

	entry := &Entry{
		Data:       append([]byte(nil), body...),
		StatusCode: status,
		Headers:    stored,
		ETag:       header.Get(HeaderETag),
		Expires:    ParseExpires(header, now, fallbackTTL),
		Tags:       tags,
		Public:     !HasDirective(header, "private"),
		CachedAt:   now,
	}

	if lastModStr := header.Get(HeaderLastModified); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// ParseExpires parses the Expires header.
// Without a usable header it returns now + fallbackTTL, or the zero time
// (no expiry) when fallbackTTL is 0. A past Expires is returned as is, so
// the entry is never stored.
func ParseExpires(headers http.Header, now time.Time, fallbackTTL time.Duration) time.Time {
	fallback := time.Time{}
	if fallbackTTL > 0 {
		fallback = now.Add(fallbackTTL)
	}

	expiresStr := headers.Get(HeaderExpires)
	if expiresStr == "" {
		return fallback
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		// RFC 9111: an invalid Expires means "already expired"
		return now
	}
	return expires
}

// WriteEntry writes a cached response to w.
func WriteEntry(w http.ResponseWriter, entry *Entry) {
	h := w.Header()
	for key, values := range entry.Headers {
		h[key] = append([]string(nil), values...)
	}
	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(entry.Data)
}

// NotModified reports whether a conditional request (If-None-Match or
// If-Modified-Since) is satisfied by the cached entry. If-None-Match takes
// precedence, as in RFC 9110.
func NotModified(r *http.Request, entry *Entry) bool {
	if r == nil || entry == nil {
		return false
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if entry.ETag == "" {
			return false
		}
		for _, candidate := range strings.Split(inm, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "*" || weakMatch(candidate, entry.ETag) {
				return true
			}
		}
		return false
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" && !entry.LastModified.IsZero() {
		since, err := http.ParseTime(ims)
		if err != nil {
			return false
		}
		return !entry.LastModified.Truncate(time.Second).After(since)
	}

	return false
}

// weakMatch compares two entity tags ignoring the weak prefix.
func weakMatch(a, b string) bool {
	return strings.TrimPrefix(a, "W/") == strings.TrimPrefix(b, "W/")
}

// Directives splits a Cache-Control header into lower-cased directives.
func Directives(header http.Header) []string {
	var out []string
	for _, value := range header.Values(HeaderCacheControl) {
		for _, d := range strings.Split(value, ",") {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				out = append(out, d)
			}
		}
	}
	return out
}

// HasDirective reports whether Cache-Control carries the directive. Only
// the directive name is compared ("max-age=60" matches "max-age").
func HasDirective(header http.Header, directive string) bool {
	for _, d := range Directives(header) {
		name, _, _ := strings.Cut(d, "=")
		if strings.TrimSpace(name) == directive {
			return true
		}
	}
	return false
}

// StripDirective removes a directive from the Cache-Control header. The
// header is deleted if nothing is left.
func StripDirective(header http.Header, directive string) {
	values := header.Values(HeaderCacheControl)
	if len(values) == 0 {
		return
	}

	var kept []string
	for _, value := range values {
		for _, d := range strings.Split(value, ",") {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			name, _, _ := strings.Cut(d, "=")
			if strings.EqualFold(strings.TrimSpace(name), directive) {
				continue
			}
			kept = append(kept, d)
		}
	}

	if len(kept) == 0 {
		header.Del(HeaderCacheControl)
		return
	}
	header.Set(HeaderCacheControl, strings.Join(kept, ", "))
}
