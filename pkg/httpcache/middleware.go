// Package httpcache serves API responses from a cache.Store.
//
// The middleware sits in front of routing and authorization:
//
//	GET  -> key -> store hit  -> cached response (handler not invoked)
//	                  miss -> handler -> eligible? -> store.Put
//	POST/PUT/PATCH/DELETE -> handler -> 2xx? -> store.InvalidateTags
//
// Cache failures never fail a request; they degrade to a miss.
package httpcache

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/cache"
)

// Config holds the middleware collaborators.
type Config struct {
	// Store is the response cache (required)
	Store cache.Store

	// Keys derives cache keys (required)
	Keys *cache.KeyGenerator

	// Rules maps route names to caching rules; nil means DefaultRule everywhere
	Rules Rules

	// Logger receives cache diagnostics
	Logger zerolog.Logger

	// FallbackTTL bounds entries whose response has no Expires header.
	// 0 keeps them until invalidated.
	FallbackTTL time.Duration

	// Now is the clock (default: time.Now)
	Now func() time.Time
}

// Middleware caches GET responses and invalidates tags after mutations.
type Middleware struct {
	store       cache.Store
	keys        *cache.KeyGenerator
	rules       Rules
	logger      zerolog.Logger
	fallbackTTL time.Duration
	now         func() time.Time
}

// New creates the middleware. Panics if Store or Keys is nil.
func New(cfg Config) *Middleware {
	if cfg.Store == nil {
		panic("cache store cannot be nil")
	}
	if cfg.Keys == nil {
		panic("key generator cannot be nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Middleware{
		store:       cfg.Store,
		keys:        cfg.Keys,
		rules:       cfg.Rules,
		logger:      cfg.Logger,
		fallbackTTL: cfg.FallbackTTL,
		now:         cfg.Now,
	}
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.keys.Generate(r)
		if err != nil {
			m.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Cache bypass: no route")
			RequestsTotal.WithLabelValues(outcomeBypass).Inc()
			m.dispatch(w, r, next)
			return
		}

		rule := m.rules.For(key.Route.Name)

		switch {
		case r.Method == http.MethodGet && rule.Cacheable:
			m.serveCached(w, r, next, key, rule)
		case isMutation(r.Method):
			m.serveMutation(w, r, next, key, rule)
		default:
			RequestsTotal.WithLabelValues(outcomeBypass).Inc()
			m.dispatch(w, r, next)
		}
	})
}

// serveCached runs a cacheable GET through lookup, dispatch and storage.
func (m *Middleware) serveCached(w http.ResponseWriter, r *http.Request, next http.Handler, key cache.Key, rule Rule) {
	ctx := r.Context()
	logger := m.logger.With().Str("route", key.Route.Name).Logger()

	start := time.Now()
	entry, err := m.store.Get(ctx, key.Value)
	LookupDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		logger.Debug().Str("key", key.Value).Msg("Cache hit")
		m.writeHit(w, r, entry)
		return
	case !errors.Is(err, cache.ErrCacheMiss):
		logger.Warn().Err(err).Msg("Cache lookup failed, treating as miss")
	default:
		logger.Debug().Str("key", key.Value).Msg("Cache miss")
	}

	// Headers set by outer middleware belong to this request only
	before := w.Header().Clone()
	buf := newBufferedWriter(w)
	next.ServeHTTP(buf, r)

	header := w.Header()
	stored := false
	if m.eligible(buf.status, header, key, rule) {
		tags := cache.TagsFor(r, key.Route)
		entry = cache.NewEntry(buf.status, handlerHeaders(before, header), buf.body.Bytes(), tags, m.now(), m.fallbackTTL)

		if err := m.store.Put(ctx, key.Value, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to store response")
		} else {
			stored = true
			logger.Debug().Str("key", key.Value).Strs("tags", tags).Msg("Response cached")
		}
	}
	cache.StripDirective(header, "no-cache")
	header.Set(cache.HeaderXCache, "MISS")

	if stored {
		RequestsTotal.WithLabelValues(outcomeStored).Inc()
	} else {
		RequestsTotal.WithLabelValues(outcomeNotStored).Inc()
	}

	if entry != nil && buf.status == http.StatusOK && cache.NotModified(r, entry) {
		writeNotModified(w)
		return
	}
	buf.flush()
}

// handlerHeaders returns the headers in after that were added or changed
// since before.
func handlerHeaders(before, after http.Header) http.Header {
	out := make(http.Header, len(after))
	for name, values := range after {
		if prev, ok := before[name]; ok && slices.Equal(prev, values) {
			continue
		}
		out[name] = values
	}
	return out
}

// writeHit replays a cached entry, or answers 304 when the request's
// validators match it.
func (m *Middleware) writeHit(w http.ResponseWriter, r *http.Request, entry *cache.Entry) {
	if cache.NotModified(r, entry) {
		RequestsTotal.WithLabelValues(outcomeNotModified).Inc()
		copyValidators(w.Header(), entry.Headers)
		w.Header().Set(cache.HeaderXCache, "HIT")
		writeNotModified(w)
		return
	}

	RequestsTotal.WithLabelValues(outcomeHit).Inc()
	w.Header().Set(cache.HeaderXCache, "HIT")
	cache.WriteEntry(w, entry)
}

// serveMutation dispatches a mutating request and drops the tags its rule
// names once the handler succeeded. The response is held back until the
// invalidation is done, so a client never reads its own stale write.
func (m *Middleware) serveMutation(w http.ResponseWriter, r *http.Request, next http.Handler, key cache.Key, rule Rule) {
	RequestsTotal.WithLabelValues(outcomeBypass).Inc()

	if len(rule.Invalidates) == 0 {
		m.dispatch(w, r, next)
		return
	}

	buf := newBufferedWriter(w)
	next.ServeHTTP(buf, r)

	if buf.status >= 200 && buf.status < 300 {
		tags := InvalidationTags(r, key, rule)
		if err := m.store.InvalidateTags(r.Context(), tags); err != nil {
			InvalidationsTotal.WithLabelValues(key.Route.Name, "error").Inc()
			m.logger.Warn().Err(err).Str("route", key.Route.Name).Strs("tags", tags).Msg("Cache invalidation failed")
		} else {
			InvalidationsTotal.WithLabelValues(key.Route.Name, "ok").Inc()
			m.logger.Debug().Str("route", key.Route.Name).Strs("tags", tags).Msg("Cache tags invalidated")
		}
	}

	cache.StripDirective(w.Header(), "no-cache")
	buf.flush()
}

// dispatch runs next with Cache-Control normalized on the way out.
func (m *Middleware) dispatch(w http.ResponseWriter, r *http.Request, next http.Handler) {
	buf := newBufferedWriter(w)
	next.ServeHTTP(buf, r)
	cache.StripDirective(w.Header(), "no-cache")
	buf.flush()
}

// eligible decides whether a produced response may be stored.
// A response is excluded if it carries no-cache or no-store, or if it is
// private and the key is not scoped to the caller.
func (m *Middleware) eligible(status int, header http.Header, key cache.Key, rule Rule) bool {
	if status != http.StatusOK || !rule.Cacheable {
		return false
	}
	if cache.HasDirective(header, "no-cache") || cache.HasDirective(header, "no-store") {
		return false
	}
	if cache.HasDirective(header, "private") && !key.Private {
		return false
	}
	return true
}

// InvalidationTags expands a rule's invalidation list for a request.
// Show tags are narrowed to the request's resource.
func InvalidationTags(r *http.Request, key cache.Key, rule Rule) []string {
	id := cache.ResourceID(r, key.Route)
	tags := make([]string, 0, len(rule.Invalidates))
	for _, tag := range rule.Invalidates {
		tags = append(tags, cache.AddResourceSuffix(tag, id))
	}
	return tags
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// validator headers repeated on a 304.
var notModifiedHeaders = []string{
	cache.HeaderETag,
	cache.HeaderLastModified,
	cache.HeaderCacheControl,
	cache.HeaderExpires,
}

func copyValidators(dst, src http.Header) {
	for _, name := range notModifiedHeaders {
		if v := src.Values(name); len(v) > 0 {
			dst[http.CanonicalHeaderKey(name)] = append([]string(nil), v...)
		}
	}
}

// writeNotModified sends a 304. Body headers set by a handler are dropped.
func writeNotModified(w http.ResponseWriter) {
	h := w.Header()
	h.Del("Content-Type")
	h.Del("Content-Length")
	w.WriteHeader(http.StatusNotModified)
}
