package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/internal/catalog"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/internal/config"
	"github.com/nicordev/formation-oc-php-projet7-api-rest-sub000/pkg/cache"
)

func newTestHandler(t *testing.T, store cache.Store) http.Handler {
	t.Helper()

	repo := catalog.NewRepository(nil)
	catalog.Seed(repo)

	cfg := &config.Config{}
	cfg.Headers.ExpiresIn = time.Hour

	return newServer(serverDeps{
		cfg:    cfg,
		store:  store,
		rules:  catalog.CacheRules(),
		repo:   repo,
		auth:   catalog.NewTokenAuthorizer(map[string]int64{"tok-orange": 5}, ""),
		logger: zerolog.Nop(),
	})
}

func get(h http.Handler, target string) *http.Response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w.Result()
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

// pingStore is a memory store with a scripted Ping.
type pingStore struct {
	*cache.MemoryStore
	err error
}

func (s pingStore) Ping(context.Context) error { return s.err }

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		store      cache.Store
		wantStatus int
	}{
		{"memory store", cache.NewMemoryStore(), http.StatusOK},
		{"remote store up", pingStore{MemoryStore: cache.NewMemoryStore()}, http.StatusOK},
		{"remote store down", pingStore{MemoryStore: cache.NewMemoryStore(), err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ready", nil)
			w := httptest.NewRecorder()

			readyHandler(tt.store)(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestServer_CachesCatalog(t *testing.T) {
	h := newTestHandler(t, cache.NewMemoryStore())

	first := get(h, "/products/1")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", first.StatusCode)
	}
	if got := first.Header.Get("X-Cache"); got != "MISS" {
		t.Errorf("first request X-Cache = %q, want MISS", got)
	}
	if first.Header.Get("X-Request-Id") == "" {
		t.Error("Expected access logging middleware to set X-Request-Id")
	}

	second := get(h, "/products/1")
	if got := second.Header.Get("X-Cache"); got != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", got)
	}

	body1, _ := io.ReadAll(first.Body)
	body2, _ := io.ReadAll(second.Body)
	if string(body1) != string(body2) {
		t.Errorf("cached body differs:\n%s\n%s", body1, body2)
	}
}

func TestServer_HitKeepsOwnRequestID(t *testing.T) {
	h := newTestHandler(t, cache.NewMemoryStore())

	first := get(h, "/products/1")
	second := get(h, "/products/1")
	if got := second.Header.Get("X-Cache"); got != "HIT" {
		t.Fatalf("second request X-Cache = %q, want HIT", got)
	}

	id1 := first.Header.Values("X-Request-Id")
	id2 := second.Header.Values("X-Request-Id")
	if len(id1) != 1 || len(id2) != 1 {
		t.Fatalf("X-Request-Id values = %v and %v, want one each", id1, id2)
	}
	if id1[0] == id2[0] {
		t.Errorf("cache hit replayed request id %s", id1[0])
	}
}

func TestServer_OperationalEndpointsBypassCache(t *testing.T) {
	h := newTestHandler(t, cache.NewMemoryStore())

	for _, path := range []string{"/health", "/ready"} {
		resp := get(h, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Cache") != "" {
			t.Errorf("%s: should not go through the cache", path)
		}
	}

	if resp := get(h, "/nowhere"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, cache.NewMemoryStore())

	// Produce some cache traffic
	get(h, "/products")
	get(h, "/products")

	resp := get(h, "/metrics")
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)

	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}

	for _, name := range []string{
		`respcache_requests_total{outcome="hit"}`,
		`respcache_requests_total{outcome="stored"}`,
		`respcache_hits_total{backend="memory"}`,
		"respcache_lookup_duration_seconds",
	} {
		if !strings.Contains(bodyStr, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := loadRules("")
	if err != nil {
		t.Fatalf("loadRules(\"\") failed: %v", err)
	}
	if len(rules) != len(catalog.CacheRules()) {
		t.Errorf("Expected built-in rules, got %d rules", len(rules))
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  product_list:\n    cacheable: false\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err = loadRules(path)
	if err != nil {
		t.Fatalf("loadRules(%s) failed: %v", path, err)
	}
	if rules.For("product_list").Cacheable {
		t.Error("product_list should not be cacheable")
	}

	if _, err := loadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing rules file")
	}
}

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Backend = config.BackendMemory

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer closeStore()

	if _, ok := store.(*cache.MemoryStore); !ok {
		t.Errorf("Expected *cache.MemoryStore, got %T", store)
	}
}
