package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/service"
)

func TestListMappings_Empty(t *testing.T) {
	env := newTestEnv()
	rec := env.do(http.MethodGet, "/mappings", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("статус = %d, тело %q, хотели 200 и []", rec.Code, rec.Body.String())
	}
}

func TestCreateMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"успех", `{"user_id":"u1","email":"a@b.c","collection_ids":["1"]}`, nil, http.StatusCreated},
		{"дубликат", `{"user_id":"u1","email":"a@b.c"}`, service.ErrConflict, http.StatusConflict},
		{"ошибка валидации", `{"user_id":"u1"}`, service.ErrValidation, http.StatusBadRequest},
		{"битый JSON", `[`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.mappings.err = tt.err
			rec := env.do(http.MethodPost, "/mappings", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestUpdateMapping_PartialFields(t *testing.T) {
	env := newTestEnv()
	env.mappings.mapping = &model.Mapping{UserID: "u1", Email: "new@b.c"}

	rec := env.do(http.MethodPut, "/mappings/u1", `{"email":"new@b.c","group_ids":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	upd := env.mappings.lastUpdate
	if env.mappings.lastUserID != "u1" {
		t.Errorf("user_id = %q", env.mappings.lastUserID)
	}
	if upd.Email == nil || *upd.Email != "new@b.c" {
		t.Errorf("email = %v", upd.Email)
	}
	if upd.GroupIDs == nil || len(*upd.GroupIDs) != 0 {
		t.Errorf("group_ids = %v, хотели пустой список", upd.GroupIDs)
	}
	if upd.CollectionIDs != nil || upd.PlatformUUID != nil {
		t.Error("не переданные поля должны остаться nil")
	}
}

func TestShowAndDeleteMapping(t *testing.T) {
	env := newTestEnv()
	env.mappings.mapping = &model.Mapping{UserID: "u2", GroupIDs: []string{}, CollectionIDs: []string{}}

	rec := env.do(http.MethodGet, "/mappings/u2", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"user_id":"u2"`) {
		t.Errorf("show: статус = %d, тело %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodDelete, "/mappings/u2", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: статус = %d, хотели 204", rec.Code)
	}

	env.mappings.err = service.ErrNotFound
	rec = env.do(http.MethodDelete, "/mappings/u3", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete отсутствующего: статус = %d, хотели 404", rec.Code)
	}
}
