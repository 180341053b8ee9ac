// Пакет server — HTTP-сервер Reporting Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/reporting-module/internal/api/handlers"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/config"
	"github.com/bigkaa/reporting-module/internal/domain/rbac"
)

// Server — HTTP-сервер Reporting Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
// auth — middleware проверки JWT, применяется ко всем маршрутам /api/v1.
func New(cfg *config.Config, logger *slog.Logger, h *handlers.APIHandler, auth func(http.Handler) http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, h, auth),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "http_server")),
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер. Health и метрики доступны без аутентификации.
func NewRouter(logger *slog.Logger, h *handlers.APIHandler, auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(chimw.Recoverer)

	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/metrics", h.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequireRole(rbac.RoleEditor))

		r.Get("/collections/items/{model_type}", h.ListCollectionItems)
		r.Get("/resources/{resource_id}/artifacts", h.FindForResource)
		r.Get("/resources/{resource_id}/sql-questions", h.FindSQLQuestions)
		r.Get("/tables/{table_id}/cards", h.FindCardsByTable)
		r.Get("/tables/{table_id}/charts", h.FindChartList)
		r.Get("/tables/{table_id}/model", h.FindModelForTable)
		r.Get("/me/cards", h.FindCreatedCards)
		r.Get("/me/dashboards", h.FindCreatedDashboards)
		r.Get("/embeddable/{model_type}", h.ListEmbeddable)

		r.Post("/embed", h.Embed)
		r.Get("/sso", h.SSO)

		r.Post("/cards/{id}/publish", h.PublishCard)
		r.Post("/dashboards/{id}/publish", h.PublishDashboard)
		r.Post("/models", h.CreateModel)

		r.Route("/mappings", func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin))
			r.Get("/", h.ListMappings)
			r.Post("/", h.CreateMapping)
			r.Get("/by-email/{email}", h.ShowMappingByEmail)
			r.Get("/{user_id}", h.ShowMapping)
			r.Put("/{user_id}", h.UpdateMapping)
			r.Delete("/{user_id}", h.DeleteMapping)
		})
	})

	return r
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
