// embedding.go — обработчики встраивания и SSO.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/bigkaa/reporting-module/internal/api/errors"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/service"
)

// defaultReturnTo — страница Metabase после входа, если return_to не задан.
const defaultReturnTo = "/"

// embedRequest — тело POST /api/v1/embed. Флаги по умолчанию включены.
type embedRequest struct {
	Type      string          `json:"type"`
	ID        json.RawMessage `json:"id"`
	Bordered  *bool           `json:"bordered"`
	Titled    *bool           `json:"titled"`
	Downloads *bool           `json:"downloads"`
}

type embedResponse struct {
	URL string `json:"url"`
}

// Embed — POST /api/v1/embed.
func (h *APIHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	url, err := h.embedding.EmbedURL(r.Context(), service.EmbedRequest{
		Kind:      req.Type,
		ID:        rawID(req.ID),
		Bordered:  boolOr(req.Bordered, true),
		Titled:    boolOr(req.Titled, true),
		Downloads: boolOr(req.Downloads, true),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, embedResponse{URL: url})
}

// SSO — GET /api/v1/sso?return_to=. Перенаправляет в Metabase с SSO-токеном.
func (h *APIHandler) SSO(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("return_to")
	if returnTo == "" {
		returnTo = defaultReturnTo
	}

	id := middleware.IdentityFromContext(r.Context())
	target, err := h.embedding.SSORedirect(r.Context(), id, returnTo)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// rawID принимает идентификатор числом или строкой.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, convErr := strconv.ParseInt(n.String(), 10, 64); convErr == nil {
			return n.String()
		}
	}
	return ""
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
