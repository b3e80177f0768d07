package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRouter_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	caps := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":false}`)
	})
	srv := httptest.NewServer(NewRouter(logger, Routes{Capabilities: caps, CORSOrigins: []string{"*"}, Version: "test"}))
	defer srv.Close()

	cases := []struct {
		path string
		code int
		want string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, `"ready"`},
		{"/api/capabilities", http.StatusOK, `{"status":false}`},
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		resp, err := http.Get(srv.URL + tc.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tc.path, err)
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != tc.code {
			t.Errorf("%s status=%d want %d", tc.path, resp.StatusCode, tc.code)
		}
		if !strings.Contains(string(b), tc.want) {
			t.Errorf("%s body %q missing %q", tc.path, b, tc.want)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s missing CORS header", tc.path)
		}
	}
}
