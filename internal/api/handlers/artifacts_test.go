package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/bigkaa/reporting-module/internal/domain/model"
)

func TestArtifacts_EmptyListsAreArrays(t *testing.T) {
	paths := []string{
		"/collections/items/card",
		"/resources/orders/artifacts",
		"/resources/orders/sql-questions",
		"/tables/7/cards",
		"/tables/7/charts?resource_id=orders",
		"/me/cards",
		"/me/dashboards",
		"/embeddable/dashboard",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			env := newTestEnv()
			rec := env.do(http.MethodGet, p, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d, хотели 200", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
				t.Errorf("тело = %q, хотели []", got)
			}
		})
	}
}

func TestArtifacts_PassIdentityAndParams(t *testing.T) {
	env := newTestEnv()
	env.finder.summaries = []model.ArtifactSummary{{ID: 1, Name: "Sales", Kind: model.KindQuestion}}

	rec := env.do(http.MethodGet, "/tables/42/charts?resource_id=%20orders%20", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if env.finder.lastTableID == nil || *env.finder.lastTableID != 42 {
		t.Errorf("table_id = %v, хотели 42", env.finder.lastTableID)
	}
	if env.finder.lastResource != "orders" {
		t.Errorf("resource_id = %q, хотели orders", env.finder.lastResource)
	}
	if env.finder.lastIdentity.UserID != "user-1" {
		t.Errorf("identity = %+v", env.finder.lastIdentity)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Sales"`) {
		t.Errorf("тело = %s", rec.Body.String())
	}

	env.do(http.MethodGet, "/me/dashboards", "")
	if env.finder.lastEmail != "ivan@example.com" {
		t.Errorf("email = %q, хотели email из токена", env.finder.lastEmail)
	}
}

func TestArtifacts_Validation(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"неизвестный model_type", "/collections/items/pulse"},
		{"embeddable неизвестный тип", "/embeddable/table"},
		{"table_id не число", "/tables/abc/cards"},
		{"table_id ноль", "/tables/0/charts"},
		{"model table_id отрицательный", "/tables/-3/model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			rec := env.do(http.MethodGet, tt.path, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("статус = %d, хотели 400", rec.Code)
			}
			if got := errorCode(t, rec); got != "VALIDATION_ERROR" {
				t.Errorf("code = %q", got)
			}
		})
	}
}

func TestFindModelForTable(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/tables/9/model", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("без модели статус = %d, хотели 404", rec.Code)
	}

	env.finder.tableMdl = &model.ArtifactSummary{ID: 11, Name: "orders model", Kind: model.KindModel}
	rec = env.do(http.MethodGet, "/tables/9/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, хотели 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":11`) {
		t.Errorf("тело = %s", rec.Body.String())
	}
}
