// artifacts.go — обработчики поиска артефактов Metabase.
// Сбои Metabase не превращаются в ошибки: ответ — пустой или частичный список.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/reporting-module/internal/api/errors"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/service"
)

// ListCollectionItems — GET /api/v1/collections/items/{model_type}.
func (h *APIHandler) ListCollectionItems(w http.ResponseWriter, r *http.Request) {
	modelType := chi.URLParam(r, "model_type")
	if service.NormalizeModelType(modelType) == "" {
		apierrors.ValidationError(w, "model_type: допустимые значения — card, question, dashboard")
		return
	}
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.ListCollectionItems(r.Context(), id, modelType)))
}

// FindForResource — GET /api/v1/resources/{resource_id}/artifacts.
func (h *APIHandler) FindForResource(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindForResource(r.Context(), id, chi.URLParam(r, "resource_id"))))
}

// FindSQLQuestions — GET /api/v1/resources/{resource_id}/sql-questions.
func (h *APIHandler) FindSQLQuestions(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindSQLQuestions(r.Context(), id, chi.URLParam(r, "resource_id"))))
}

// FindCardsByTable — GET /api/v1/tables/{table_id}/cards.
func (h *APIHandler) FindCardsByTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathInt64(r, "table_id")
	if !ok {
		apierrors.ValidationError(w, "table_id: ожидается положительное целое число")
		return
	}
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindCardsByTable(r.Context(), id, tableID)))
}

// FindChartList — GET /api/v1/tables/{table_id}/charts?resource_id=.
func (h *APIHandler) FindChartList(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathInt64(r, "table_id")
	if !ok {
		apierrors.ValidationError(w, "table_id: ожидается положительное целое число")
		return
	}
	resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id"))
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindChartList(r.Context(), id, &tableID, resourceID)))
}

// FindModelForTable — GET /api/v1/tables/{table_id}/model.
func (h *APIHandler) FindModelForTable(w http.ResponseWriter, r *http.Request) {
	tableID, ok := pathInt64(r, "table_id")
	if !ok {
		apierrors.ValidationError(w, "table_id: ожидается положительное целое число")
		return
	}
	m := h.artifacts.FindModelForTable(r.Context(), tableID)
	if m == nil {
		apierrors.NotFound(w, "Модель для таблицы "+strconv.FormatInt(tableID, 10)+" не найдена")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// FindCreatedCards — GET /api/v1/me/cards.
func (h *APIHandler) FindCreatedCards(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindCreatedCards(r.Context(), id, id.Email)))
}

// FindCreatedDashboards — GET /api/v1/me/dashboards.
func (h *APIHandler) FindCreatedDashboards(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.FindCreatedDashboards(r.Context(), id, id.Email)))
}

// ListEmbeddable — GET /api/v1/embeddable/{model_type}.
func (h *APIHandler) ListEmbeddable(w http.ResponseWriter, r *http.Request) {
	modelType := chi.URLParam(r, "model_type")
	if service.NormalizeModelType(modelType) == "" {
		apierrors.ValidationError(w, "model_type: допустимые значения — card, question, dashboard")
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(h.artifacts.ListEmbeddable(r.Context(), modelType)))
}

// orEmpty заменяет nil на пустой срез: список всегда сериализуется как [].
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
