package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		header  map[string]string
		want    string
	}{
		{"no proxies ignores headers", nil, "203.0.113.5:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.5:4000"},
		{"trusted proxy X-Real-IP", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted single address", []string{"127.0.0.1"}, "127.0.0.1:4000",
			map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"untrusted proxy", []string{"10.0.0.0/8"}, "192.168.1.1:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.1:4000"},
		{"invalid header value", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:4000"},
		{"invalid entry skipped", []string{"bogus", " 10.0.0.0/8 "}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "::1"}, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees/9", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	line := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "bytes=7", "path=/api/employees/9"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}
