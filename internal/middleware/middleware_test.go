package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"media-thumbnailer/internal/logging"

	"github.com/gorilla/mux"
)

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "GET", "GET"},
		{"newline injection", "a\nb", "a b"},
		{"carriage return", "a\r\nb", "a  b"},
		{"null byte", "a\x00b", "ab"},
		{"escape sequence", "\x1b[31mred", "[31mred"},
		{"tab kept", "a\tb", "a\tb"},
		{"unicode kept", "ünï", "ünï"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"curl/8.0", "curl/8.0"},
		{"Mozilla/5.0 (X11)", `"Mozilla/5.0 (X11)"`},
		{`say "hi"`, `"say ""hi"""`},
	}

	for _, tt := range tests {
		if got := escapeW3CField(tt.input); got != tt.want {
			t.Errorf("escapeW3CField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded for first hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "10.0.0.1:5555", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "10.0.0.1:5555", "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	cfg := LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: false}

	tests := []struct {
		path string
		want bool
	}{
		{"/metrics", true},
		{"/health", true},
		{"/readyz", true},
		{"/api/jobs", false},
	}
	for _, tt := range tests {
		if got := shouldSkip(tt.path, cfg); got != tt.want {
			t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	cfg.LogHealthChecks = true
	if shouldSkip("/health", cfg) {
		t.Error("health checks should be logged when LogHealthChecks is set")
	}
}

func TestFormatW3C(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/thumbnails?format=webp", nil)
	r.RemoteAddr = "192.168.1.5:40000"
	r.Header.Set("User-Agent", "thumb client")

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	rw.Header().Set(RequestIDHeader, "req-1")
	rw.WriteHeader(http.StatusCreated)
	_, _ = rw.Write([]byte("hello"))

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := formatW3C(r, rw, 42*time.Millisecond, now)
	want := `2026-03-04 05:06:07 192.168.1.5 POST /api/thumbnails format=webp 201 5 42 - "thumb client" req-1`
	if got != want {
		t.Errorf("formatW3C() =\n%q\nwant\n%q", got, want)
	}
}

func TestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })

	h := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs", nil))

	if !strings.Contains(buf.String(), "GET /api/jobs - 418") {
		t.Errorf("log output = %q, missing request line", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("generated id = %q, header = %q", seen, rec.Header().Get(RequestIDHeader))
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if seen != "abc-123" {
		t.Errorf("caller id not kept: %q", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), r)
	if len(seen) > 128 {
		t.Errorf("oversized caller id accepted")
	}
}

func TestRouteLabel(t *testing.T) {
	var label string
	router := mux.NewRouter()
	router.HandleFunc("/api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs/0f8e", nil))

	if label != "/api/jobs/{id}" {
		t.Errorf("routeLabel() = %q, want /api/jobs/{id}", label)
	}

	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Errorf("routeLabel() outside router = %q", got)
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestCompression(t *testing.T) {
	large := strings.Repeat(`{"k":"v"},`, 500)

	tests := []struct {
		name        string
		contentType string
		body        string
		accept      string
		wantGzip    bool
	}{
		{"large json", "application/json", large, "gzip, deflate", true},
		{"small json", "application/json", `{"ok":true}`, "gzip", false},
		{"image", "image/jpeg", large, "gzip", false},
		{"no accept", "application/json", large, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				_, _ = io.WriteString(w, tt.body)
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				r.Header.Set("Accept-Encoding", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			gotGzip := rec.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			body := rec.Body.Bytes()
			if gotGzip {
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip.NewReader: %v", err)
				}
				body, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("read gzip body: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionKeepsStatus(t *testing.T) {
	h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
