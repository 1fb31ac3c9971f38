// Package testutil provides a scripted API backend for cache tests.
package testutil

import (
	"net/http"
	"sync"
	"time"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/routing"
)

// MockResponse defines the behavior of one mock route.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a route table whose handlers replay scripted responses and
// count what reached them. A request served from cache never shows up in
// the counters.
type MockAPI struct {
	table     *routing.Table
	mu        sync.RWMutex
	responses map[string]MockResponse // route name -> response
	private   map[string]bool

	// Tracking
	RequestCount      int
	AuthCheckCount    int
	LastRequestHeader http.Header
}

// NewMockAPI creates an empty mock API.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		table:     routing.NewTable(),
		responses: make(map[string]MockResponse),
		private:   make(map[string]bool),
	}
}

// Handle registers a route answered with the default response until
// SetResponse overrides it.
func (m *MockAPI) Handle(route routing.Route) {
	m.table.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		m.serve(route.Name, w, r)
	})
}

// HandlePrivate registers a route that requires an Authorization header.
// Each request reaching it counts as an authorization check.
func (m *MockAPI) HandlePrivate(route routing.Route) {
	m.mu.Lock()
	m.private[route.Name] = true
	m.mu.Unlock()
	m.Handle(route)
}

// Table returns the route table, for dispatch and key generation.
func (m *MockAPI) Table() *routing.Table {
	return m.table
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.AuthCheckCount = 0
	m.LastRequestHeader = nil
}

// SetResponse configures the response of a route.
func (m *MockAPI) SetResponse(routeName string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[routeName] = resp
}

// GetRequestCount returns the number of requests that reached a handler.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetAuthCheckCount returns the number of authorization checks.
func (m *MockAPI) GetAuthCheckCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.AuthCheckCount
}

func (m *MockAPI) serve(routeName string, w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	private := m.private[routeName]
	if private {
		m.AuthCheckCount++
	}
	resp, ok := m.responses[routeName]
	m.mu.Unlock()

	if private && r.Header.Get("Authorization") == "" {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		resp = NewCacheableResponse(`{"status": "ok"}`, 5*time.Minute)
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewCacheableResponse creates a public 200 response expiring after ttl.
func NewCacheableResponse(data string, ttl time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Cache-Control": "public",
			"ETag":          `"test-etag-123"`,
			"Expires":       time.Now().Add(ttl).UTC().Format(http.TimeFormat),
			"Content-Type":  "application/json",
		},
	}
}

// NewNoCacheResponse creates a 200 response marked no-cache.
func NewNoCacheResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Cache-Control": "no-cache",
			"Content-Type":  "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}
