package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

func TestEmbed(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantID        string
		wantBordered  bool
		wantDownloads bool
	}{
		{"числовой id, флаги по умолчанию", `{"type":"question","id":12}`, "12", true, true},
		{"строковый id", `{"type":"dashboard","id":" abc "}`, "abc", true, true},
		{"флаги выключены", `{"type":"question","id":1,"bordered":false,"downloads":false}`, "1", false, false},
		{"дробный id не принимается", `{"type":"question","id":1.5}`, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			rec := env.do(http.MethodPost, "/embed", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("статус = %d, тело %s", rec.Code, rec.Body.String())
			}

			req := env.embedder.lastReq
			if req.ID != tt.wantID {
				t.Errorf("ID = %q, хотели %q", req.ID, tt.wantID)
			}
			if req.Bordered != tt.wantBordered || req.Downloads != tt.wantDownloads || !req.Titled {
				t.Errorf("флаги = %+v", req)
			}

			var resp embedResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.URL == "" {
				t.Errorf("ответ = %s", rec.Body.String())
			}
		})
	}
}

func TestEmbed_Errors(t *testing.T) {
	env := newTestEnv()
	rec := env.do(http.MethodPost, "/embed", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("битый JSON: статус = %d, хотели 400", rec.Code)
	}

	env.embedder.err = &tokenmint.MintingError{Strategy: tokenmint.StrategyDelegated, Reason: "сервис отказал"}
	rec = env.do(http.MethodPost, "/embed", `{"type":"question","id":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("отказ выпуска: статус = %d, хотели 400", rec.Code)
	}
	if got := errorCode(t, rec); got != "VALIDATION_ERROR" {
		t.Errorf("code = %q, хотели VALIDATION_ERROR", got)
	}
}

func TestSSO(t *testing.T) {
	env := newTestEnv()
	env.embedder.url = "https://mb.example.com/auth/sso?jwt=tok&return_to=%2F"

	rec := env.do(http.MethodGet, "/sso", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("статус = %d, хотели 302", rec.Code)
	}
	if env.embedder.lastReturnTo != "/" {
		t.Errorf("return_to = %q, хотели /", env.embedder.lastReturnTo)
	}
	if loc := rec.Header().Get("Location"); loc != env.embedder.url {
		t.Errorf("Location = %q", loc)
	}

	env.do(http.MethodGet, "/sso?return_to=/dashboard/3", "")
	if env.embedder.lastReturnTo != "/dashboard/3" {
		t.Errorf("return_to = %q, хотели /dashboard/3", env.embedder.lastReturnTo)
	}
}
