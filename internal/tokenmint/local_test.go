package tokenmint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestSigner() *LocalSigner {
	return NewLocalSigner("embed-secret", "sso-secret", 0, fixedClock, testLogger())
}

// parseHS256 проверяет подпись и возвращает claims.
func parseHS256(t *testing.T, token, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("токен не прошёл проверку: %v", err)
	}
	return claims
}

func TestLocalSigner_MintEmbed(t *testing.T) {
	s := newTestSigner()

	res, err := s.MintEmbed(context.Background(), EmbedClaims{Kind: "dashboard", ID: "42"})
	if err != nil {
		t.Fatalf("MintEmbed: %v", err)
	}
	if res.Strategy != StrategyLocal {
		t.Errorf("Strategy = %q", res.Strategy)
	}

	claims := parseHS256(t, res.Token, "embed-secret")
	resource, ok := claims["resource"].(map[string]any)
	if !ok || resource["dashboard"] != float64(42) {
		t.Errorf("resource = %v, хотели {dashboard: 42}", claims["resource"])
	}
	if params, ok := claims["params"].(map[string]any); !ok || len(params) != 0 {
		t.Errorf("params = %v, хотели {}", claims["params"])
	}
	if exp := claims["exp"]; exp != float64(fixedNow.Add(10*time.Minute).Unix()) {
		t.Errorf("exp = %v", exp)
	}
}

func TestLocalSigner_Deterministic(t *testing.T) {
	s := newTestSigner()
	ctx := context.Background()

	a, _ := s.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "7"})
	b, _ := s.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "7"})
	if a.Token != b.Token {
		t.Error("одинаковые claims и время должны давать одинаковый токен")
	}

	c, _ := s.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "8"})
	if a.Token == c.Token {
		t.Error("изменение id должно менять токен")
	}

	other := NewLocalSigner("another-secret", "sso-secret", 0, fixedClock, testLogger())
	d, _ := other.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "7"})
	if a.Token == d.Token {
		t.Error("изменение секрета должно менять токен")
	}

	later := NewLocalSigner("embed-secret", "sso-secret", 0,
		func() time.Time { return fixedNow.Add(time.Minute) }, testLogger())
	e, _ := later.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "7"})
	if a.Token == e.Token {
		t.Error("изменение времени должно менять токен")
	}
}

func TestLocalSigner_MintSSO(t *testing.T) {
	s := newTestSigner()

	res, err := s.MintSSO(context.Background(), SSOClaims{
		Email:     "jane@example.com",
		Groups:    []string{"3", "5"},
		FirstName: "Jane",
		LastName:  "Doe",
	})
	if err != nil {
		t.Fatalf("MintSSO: %v", err)
	}

	claims := parseHS256(t, res.Token, "sso-secret")
	if claims["email"] != "jane@example.com" || claims["first_name"] != "Jane" || claims["last_name"] != "Doe" {
		t.Errorf("claims = %v", claims)
	}
	groups, _ := claims["groups"].([]any)
	if len(groups) != 2 || groups[0] != "3" {
		t.Errorf("groups = %v", claims["groups"])
	}
}

func TestLocalSigner_MintSSO_WithoutName(t *testing.T) {
	s := newTestSigner()

	res, err := s.MintSSO(context.Background(), SSOClaims{Email: "solo@example.com"})
	if err != nil {
		t.Fatalf("MintSSO: %v", err)
	}
	claims := parseHS256(t, res.Token, "sso-secret")
	if _, ok := claims["first_name"]; ok {
		t.Error("first_name не должен передаваться без фамилии")
	}
	if groups, ok := claims["groups"].([]any); !ok || len(groups) != 0 {
		t.Errorf("groups = %v, хотели []", claims["groups"])
	}
}

func TestLocalSigner_MissingSecrets(t *testing.T) {
	s := NewLocalSigner("", "", 0, fixedClock, testLogger())
	ctx := context.Background()

	if _, err := s.MintEmbed(ctx, EmbedClaims{Kind: "question", ID: "1"}); !errors.Is(err, ErrTokenMinting) {
		t.Errorf("MintEmbed без секрета: err = %v, хотели ErrTokenMinting", err)
	}
	_, err := s.MintSSO(ctx, SSOClaims{Email: "a@b.c"})
	var mErr *MintingError
	if !errors.As(err, &mErr) || mErr.Strategy != StrategyLocal {
		t.Errorf("MintSSO без секрета: err = %v, хотели *MintingError", err)
	}
}

func TestResourceID(t *testing.T) {
	if v := ResourceID("15"); v != int64(15) {
		t.Errorf("ResourceID(15) = %#v", v)
	}
	if v := ResourceID("abc-def"); v != "abc-def" {
		t.Errorf("ResourceID(abc-def) = %#v", v)
	}
}

func TestNew_SelectsStrategy(t *testing.T) {
	local := New(Options{EmbeddingSecret: "s"}, nil, testLogger())
	if local.Strategy() != StrategyLocal {
		t.Errorf("без сервиса управления: %q", local.Strategy())
	}

	onlyURL := New(Options{ManageServiceURL: "http://manage"}, nil, testLogger())
	if onlyURL.Strategy() != StrategyLocal {
		t.Errorf("только URL без ключа: %q", onlyURL.Strategy())
	}

	delegated := New(Options{ManageServiceURL: "http://manage", ManageServiceKey: "k"}, nil, testLogger())
	if delegated.Strategy() != StrategyDelegated {
		t.Errorf("с URL и ключом: %q", delegated.Strategy())
	}
}
