// mappings.go — обработчики администрирования маппингов (роль admin).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/reporting-module/internal/api/errors"
	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/service"
)

type createMappingRequest struct {
	UserID        string   `json:"user_id"`
	PlatformUUID  string   `json:"platform_uuid"`
	Email         string   `json:"email"`
	GroupIDs      []string `json:"group_ids"`
	CollectionIDs []string `json:"collection_ids"`
}

type updateMappingRequest struct {
	PlatformUUID  *string   `json:"platform_uuid"`
	Email         *string   `json:"email"`
	GroupIDs      *[]string `json:"group_ids"`
	CollectionIDs *[]string `json:"collection_ids"`
}

// ListMappings — GET /api/v1/mappings.
func (h *APIHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	items, err := h.mappings.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(items))
}

// CreateMapping — POST /api/v1/mappings.
func (h *APIHandler) CreateMapping(w http.ResponseWriter, r *http.Request) {
	var req createMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	m := &model.Mapping{
		UserID:        req.UserID,
		PlatformUUID:  req.PlatformUUID,
		Email:         req.Email,
		GroupIDs:      req.GroupIDs,
		CollectionIDs: req.CollectionIDs,
	}
	if err := h.mappings.Create(r.Context(), m); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ShowMapping — GET /api/v1/mappings/{user_id}.
func (h *APIHandler) ShowMapping(w http.ResponseWriter, r *http.Request) {
	m, err := h.mappings.Show(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ShowMappingByEmail — GET /api/v1/mappings/by-email/{email}.
func (h *APIHandler) ShowMappingByEmail(w http.ResponseWriter, r *http.Request) {
	m, err := h.mappings.ShowByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMapping — PUT /api/v1/mappings/{user_id}. Не переданные поля не меняются.
func (h *APIHandler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	m, err := h.mappings.Update(r.Context(), chi.URLParam(r, "user_id"), service.MappingUpdate{
		PlatformUUID:  req.PlatformUUID,
		Email:         req.Email,
		GroupIDs:      req.GroupIDs,
		CollectionIDs: req.CollectionIDs,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMapping — DELETE /api/v1/mappings/{user_id}.
func (h *APIHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.mappings.Delete(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
