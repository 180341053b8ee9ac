package metabase

import (
	"net/http"
	"testing"
)

func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"ok", http.StatusOK, `{"status":"ok"}`, "ok"},
		{"стартует", http.StatusOK, `{"status":"starting"}`, "degraded"},
		{"503", http.StatusServiceUnavailable, `{"status":"unhealthy"}`, "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupMockMetabase(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/health" {
					t.Errorf("путь = %q, хотели /api/health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			if got, msg := c.CheckReady(); got != tt.want {
				t.Errorf("CheckReady() = %q (%s), хотели %q", got, msg, tt.want)
			}
		})
	}
}
