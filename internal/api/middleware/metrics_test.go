package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = routePattern(req)
		})
	})
	r.Get("/api/v1/tables/{table_id}/cards", func(w http.ResponseWriter, _ *http.Request) {})

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/tables/42/cards", "/api/v1/tables/{table_id}/cards"},
		{"/nope", unmatchedRoute},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got != tt.want {
				t.Errorf("routePattern = %q, ожидался %q", got, tt.want)
			}
		})
	}

	if p := routePattern(httptest.NewRequest(http.MethodGet, "/", nil)); p != unmatchedRoute {
		t.Errorf("без роутера: %q, ожидался %q", p, unmatchedRoute)
	}
}
