package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

func newTestEmbedding(minter *fakeMinter, repo *fakeMappingRepo) *EmbeddingService {
	if repo == nil {
		repo = newFakeMappingRepo(&model.Mapping{
			UserID:       "u1",
			PlatformUUID: "0b8a3c1e-6f0e-4d4a-9d59-1c1f0d3b8b11",
			GroupIDs:     []string{"3", "4"},
		})
	}
	scopes := NewScopeResolver(repo, nil, []string{"1"}, testLogger())
	return NewEmbeddingService(minter, scopes, "https://mb.example.com", testLogger())
}

func TestEmbeddingService_EmbedURL(t *testing.T) {
	minter := &fakeMinter{}
	s := newTestEmbedding(minter, nil)

	got, err := s.EmbedURL(context.Background(), EmbedRequest{Kind: "card", ID: "42", Bordered: true, Downloads: true})
	if err != nil {
		t.Fatalf("EmbedURL: %v", err)
	}
	want := "https://mb.example.com/embed/question/tok-embed#bordered=true&titled=false&downloads=true"
	if got != want {
		t.Errorf("EmbedURL = %q, хотели %q", got, want)
	}
	if minter.embed.Kind != "question" || minter.embed.ID != "42" {
		t.Errorf("claims = %+v", minter.embed)
	}

	if _, err := s.EmbedURL(context.Background(), EmbedRequest{Kind: "table", ID: "1"}); !errors.Is(err, ErrValidation) {
		t.Errorf("неподдерживаемый тип: err = %v, хотели ErrValidation", err)
	}
}

func TestEmbeddingService_MintingFailure(t *testing.T) {
	minter := &fakeMinter{err: &tokenmint.MintingError{Strategy: tokenmint.StrategyDelegated, Reason: "503"}}
	s := newTestEmbedding(minter, nil)

	if _, err := s.EmbedURL(context.Background(), EmbedRequest{Kind: "dashboard", ID: "1"}); !errors.Is(err, tokenmint.ErrTokenMinting) {
		t.Errorf("err = %v, хотели ErrTokenMinting", err)
	}
	_, err := s.SSORedirect(context.Background(), model.Identity{UserID: "u1", Email: "a@b.c"}, "")
	if !errors.Is(err, tokenmint.ErrTokenMinting) {
		t.Errorf("SSO err = %v, хотели ErrTokenMinting", err)
	}
}

func TestEmbeddingService_SSO(t *testing.T) {
	minter := &fakeMinter{}
	s := newTestEmbedding(minter, nil)

	got, err := s.SSORedirect(context.Background(),
		model.Identity{UserID: "u1", Email: " a@b.c ", FullName: "Anna  Maria Petrova"}, "/dashboard/3")
	if err != nil {
		t.Fatalf("SSORedirect: %v", err)
	}
	if !strings.HasPrefix(got, "https://mb.example.com/auth/sso?") || !strings.Contains(got, "jwt=tok-sso") {
		t.Errorf("SSORedirect = %q", got)
	}
	if !strings.Contains(got, "return_to=%2Fdashboard%2F3") {
		t.Errorf("SSORedirect = %q, нет return_to", got)
	}

	c := minter.sso
	if c.Email != "a@b.c" || c.FirstName != "Anna" || c.LastName != "Petrova" {
		t.Errorf("claims = %+v", c)
	}
	if !slices.Equal(c.Groups, []string{"3", "4"}) || c.PlatformUUID == "" {
		t.Errorf("группы и platform UUID должны браться из маппинга: %+v", c)
	}
}

func TestEmbeddingService_SSODefaults(t *testing.T) {
	minter := &fakeMinter{}
	s := newTestEmbedding(minter, newFakeMappingRepo())

	if _, err := s.SSOToken(context.Background(), model.Identity{UserID: "u9", Email: "x@y.z", FullName: "Single"}); err != nil {
		t.Fatalf("SSOToken: %v", err)
	}
	c := minter.sso
	if !slices.Equal(c.Groups, []string{"1"}) || c.PlatformUUID != "" || c.FirstName != "" {
		t.Errorf("claims = %+v, хотели группы по умолчанию без имени", c)
	}

	if _, err := s.SSOToken(context.Background(), model.Identity{UserID: "u9"}); !errors.Is(err, ErrValidation) {
		t.Errorf("без email: err = %v, хотели ErrValidation", err)
	}
}

func TestEmbeddingService_SSOStorageFailure(t *testing.T) {
	repo := newFakeMappingRepo()
	repo.err = errDBDown
	s := newTestEmbedding(&fakeMinter{}, repo)

	if _, err := s.SSOToken(context.Background(), model.Identity{UserID: "u1", Email: "a@b.c"}); !errors.Is(err, errDBDown) {
		t.Errorf("err = %v, хотели ошибку хранилища", err)
	}
}
