package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/reporting-module/internal/api/handlers"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/repository"
	"github.com/bigkaa/reporting-module/internal/service"
)

// fakeAuth подставляет claims с ролью из заголовка X-Test-Role; без заголовка — 401.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Test-Role")
		if role == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		claims := &middleware.AuthClaims{Subject: "u1", EffectiveRole: role}
		next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memMappings{}
	scopes := service.NewScopeResolver(repo, nil, nil, logger)
	artifacts := service.NewArtifactService(nil, scopes, service.DiscoveryOptions{PageSize: 10, MaxResults: 5, Workers: 2}, logger)
	h := handlers.NewAPIHandler(
		handlers.NewHealthHandler(nil, nil, nil),
		artifacts,
		service.NewEmbeddingService(nil, scopes, "https://mb.example.com", logger),
		service.NewPublishingService(nil, scopes, "", logger),
		service.NewMappingService(repo, logger),
		logger,
	)
	return NewRouter(logger, h, fakeAuth)
}

func TestRouter_Access(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		role     string
		wantCode int
	}{
		{"liveness без токена", http.MethodGet, "/health/live", "", http.StatusOK},
		{"api без токена", http.MethodGet, "/api/v1/me/cards", "", http.StatusUnauthorized},
		{"api без роли", http.MethodGet, "/api/v1/me/cards", "none", http.StatusForbidden},
		{"editor: поиск с пустым scope", http.MethodGet, "/api/v1/me/cards", "editor", http.StatusOK},
		{"editor: маппинги запрещены", http.MethodGet, "/api/v1/mappings", "editor", http.StatusForbidden},
		{"admin: маппинги", http.MethodGet, "/api/v1/mappings", "admin", http.StatusOK},
		{"admin: show неизвестного", http.MethodGet, "/api/v1/mappings/ghost", "admin", http.StatusOK},
		{"admin: поиск по неизвестному email", http.MethodGet, "/api/v1/mappings/by-email/x@y.z", "admin", http.StatusNotFound},
		{"неизвестный маршрут", http.MethodGet, "/api/v1/unknown", "admin", http.StatusNotFound},
	}

	router := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				req.Header.Set("X-Test-Role", tt.role)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("статус = %d, хотели %d", rec.Code, tt.wantCode)
			}
		})
	}
}

// memMappings — пустое хранилище маппингов.
type memMappings struct{}

func (memMappings) Create(context.Context, *model.Mapping) error { return nil }

func (memMappings) GetByUserID(context.Context, string) (*model.Mapping, error) {
	return nil, repository.ErrNotFound
}

func (memMappings) GetByEmail(context.Context, string) (*model.Mapping, error) {
	return nil, repository.ErrNotFound
}

func (memMappings) Update(context.Context, *model.Mapping) error { return repository.ErrNotFound }

func (memMappings) Delete(context.Context, string) error { return repository.ErrNotFound }

func (memMappings) List(context.Context) ([]*model.Mapping, error) { return nil, nil }
