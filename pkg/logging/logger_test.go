package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Levels arrive from LOG_LEVEL and the config file as free text.
func TestParseLevel_ConfigSpellings(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{" debug ", zerolog.DebugLevel},
		{"Info", zerolog.InfoLevel},
		{"WARNING", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR\n", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_FollowsSetup(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "warning", Output: buf})

	logger := NewLogger("httpcache")
	logger.Info().Msg("Cache miss")
	logger.Warn().Msg("Cache lookup failed")

	output := buf.String()
	if strings.Contains(output, "Cache miss") {
		t.Error("Info message should be filtered out at warning level")
	}
	if !strings.Contains(output, `"component":"httpcache"`) {
		t.Errorf("Expected component field, got %q", output)
	}
	if !strings.Contains(output, "Cache lookup failed") {
		t.Errorf("Expected warn message, got %q", output)
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})
	logger.Info().Str("route", "product_show").Msg("Response cached")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
	if !strings.Contains(output, "Response cached") || !strings.Contains(output, "product_show") {
		t.Errorf("Expected console message and field, got %q", output)
	}
}

func TestSetup_NilOutput(t *testing.T) {
	// Falls back to stderr instead of panicking
	logger := Setup(Config{Level: LevelError})
	logger.Debug().Msg("discarded")
}

func TestHTTPMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Output: buf})

	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("cached body"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/products/42?page=1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("Expected X-Request-Id response header")
	}

	output := buf.String()
	for _, want := range []string{
		`"method":"GET"`,
		`"url":"/products/42?page=1"`,
		`"status":200`,
		`"size":11`,
		`"cache":"HIT"`,
		`"request_id":`,
		"Request handled",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected access log to contain %s, got %q", want, output)
		}
	}
}
