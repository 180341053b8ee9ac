// handler.go — основной обработчик API Reporting Module.
// Объединяет health и бизнес-обработчики, делегируя запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/reporting-module/internal/api/errors"
	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/service"
	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

// ArtifactFinder — поиск артефактов Metabase.
type ArtifactFinder interface {
	ListCollectionItems(ctx context.Context, id model.Identity, modelType string) []model.CollectionItem
	FindSQLQuestions(ctx context.Context, id model.Identity, resourceID string) []model.ArtifactSummary
	FindCardsByTable(ctx context.Context, id model.Identity, tableID int64) []model.ArtifactSummary
	FindChartList(ctx context.Context, id model.Identity, tableID *int64, resourceID string) []model.ArtifactSummary
	FindForResource(ctx context.Context, id model.Identity, resourceID string) []model.ArtifactSummary
	FindCreatedCards(ctx context.Context, id model.Identity, email string) []model.ArtifactDetail
	FindCreatedDashboards(ctx context.Context, id model.Identity, email string) []model.ArtifactDetail
	FindModelForTable(ctx context.Context, tableID int64) *model.ArtifactSummary
	ListEmbeddable(ctx context.Context, modelType string) []int64
}

// Embedder — URL встраивания и SSO.
type Embedder interface {
	EmbedURL(ctx context.Context, req service.EmbedRequest) (string, error)
	SSORedirect(ctx context.Context, id model.Identity, returnTo string) (string, error)
}

// Publisher — публикация артефактов и создание моделей.
type Publisher interface {
	PublishCard(ctx context.Context, cardID int64) error
	PublishDashboard(ctx context.Context, dashboardID int64, enableParams bool) error
	CreateModel(ctx context.Context, id model.Identity, req service.CreateModelRequest) (json.RawMessage, error)
}

// MappingManager — администрирование маппингов.
type MappingManager interface {
	Create(ctx context.Context, m *model.Mapping) error
	Update(ctx context.Context, userID string, upd service.MappingUpdate) (*model.Mapping, error)
	Delete(ctx context.Context, userID string) error
	Show(ctx context.Context, userID string) (*model.Mapping, error)
	ShowByEmail(ctx context.Context, email string) (*model.Mapping, error)
	List(ctx context.Context) ([]*model.Mapping, error)
}

// APIHandler — обработчик API Reporting Module.
type APIHandler struct {
	health     *HealthHandler
	artifacts  ArtifactFinder
	embedding  Embedder
	publishing Publisher
	mappings   MappingManager
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	artifacts ArtifactFinder,
	embedding Embedder,
	publishing Publisher,
	mappings MappingManager,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		artifacts:  artifacts,
		embedding:  embedding,
		publishing: publishing,
		mappings:   mappings,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// pathInt64 разбирает числовой параметр пути.
func pathInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ.
// Отказ выпуска токена — 400 VALIDATION_ERROR.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, tokenmint.ErrTokenMinting):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrRemoteRejected):
		apierrors.MetabaseUnavailable(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
