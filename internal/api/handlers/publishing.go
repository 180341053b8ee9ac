// publishing.go — обработчики публикации артефактов и создания моделей.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apierrors "github.com/bigkaa/reporting-module/internal/api/errors"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/service"
)

type successResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type publishDashboardRequest struct {
	EnableParams bool `json:"enable_params"`
}

type createModelRequest struct {
	ResourceID  string `json:"resource_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PublishCard — POST /api/v1/cards/{id}/publish.
func (h *APIHandler) PublishCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathInt64(r, "id")
	if !ok {
		apierrors.ValidationError(w, "id: ожидается положительное целое число")
		return
	}
	if err := h.publishing.PublishCard(r.Context(), cardID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// PublishDashboard — POST /api/v1/dashboards/{id}/publish.
// Тело необязательно: {"enable_params": true} открывает все параметры дашборда.
func (h *APIHandler) PublishDashboard(w http.ResponseWriter, r *http.Request) {
	dashboardID, ok := pathInt64(r, "id")
	if !ok {
		apierrors.ValidationError(w, "id: ожидается положительное целое число")
		return
	}

	var req publishDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	if err := h.publishing.PublishDashboard(r.Context(), dashboardID, req.EnableParams); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// CreateModel — POST /api/v1/models.
func (h *APIHandler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req createModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	created, err := h.publishing.CreateModel(r.Context(), middleware.IdentityFromContext(r.Context()),
		service.CreateModelRequest{
			ResourceID:  req.ResourceID,
			Name:        req.Name,
			Description: req.Description,
		})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, successResponse{Success: true, Result: created})
}
