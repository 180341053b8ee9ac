package tokenmint

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalSigner подписывает токены HS256 общими секретами Metabase.
// При одинаковом времени, claims и секрете результат побайтно совпадает.
type LocalSigner struct {
	embeddingSecret []byte
	ssoSecret       []byte
	ttl             time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

// NewLocalSigner создаёт LocalSigner. ttl <= 0 — DefaultTTL, now == nil — time.Now.
func NewLocalSigner(embeddingSecret, ssoSecret string, ttl time.Duration, now func() time.Time, logger *slog.Logger) *LocalSigner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &LocalSigner{
		embeddingSecret: []byte(embeddingSecret),
		ssoSecret:       []byte(ssoSecret),
		ttl:             ttl,
		now:             now,
		logger:          logger.With(slog.String("component", "tokenmint")),
	}
}

// Strategy возвращает StrategyLocal.
func (s *LocalSigner) Strategy() Strategy { return StrategyLocal }

// MintEmbed подписывает {"resource": {kind: id}, "params": {}, "exp": ...} секретом встраивания.
func (s *LocalSigner) MintEmbed(_ context.Context, c EmbedClaims) (Result, error) {
	if len(s.embeddingSecret) == 0 {
		err := &MintingError{Strategy: StrategyLocal, Reason: "не задан секрет встраивания"}
		observe(StrategyLocal, kindEmbed, err)
		return Result{}, err
	}

	claims := jwt.MapClaims{
		"resource": map[string]any{c.Kind: ResourceID(c.ID)},
		"params":   map[string]any{},
		"exp":      s.expiry(),
	}
	return s.sign(claims, s.embeddingSecret, kindEmbed)
}

// MintSSO подписывает {"email", "groups", "exp"[, "first_name", "last_name"]} секретом SSO.
func (s *LocalSigner) MintSSO(_ context.Context, c SSOClaims) (Result, error) {
	if len(s.ssoSecret) == 0 {
		err := &MintingError{Strategy: StrategyLocal, Reason: "не задан общий секрет SSO"}
		observe(StrategyLocal, kindSSO, err)
		return Result{}, err
	}

	groups := c.Groups
	if groups == nil {
		groups = []string{}
	}
	claims := jwt.MapClaims{
		"email":  c.Email,
		"groups": groups,
		"exp":    s.expiry(),
	}
	if c.FirstName != "" && c.LastName != "" {
		claims["first_name"] = c.FirstName
		claims["last_name"] = c.LastName
	}
	return s.sign(claims, s.ssoSecret, kindSSO)
}

func (s *LocalSigner) expiry() int64 {
	return s.now().Add(s.ttl).Round(time.Second).Unix()
}

func (s *LocalSigner) sign(claims jwt.MapClaims, secret []byte, kind string) (Result, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		mErr := &MintingError{Strategy: StrategyLocal, Reason: "ошибка подписи", Err: err}
		observe(StrategyLocal, kind, mErr)
		return Result{}, mErr
	}
	observe(StrategyLocal, kind, nil)
	s.logger.Debug("Токен подписан", slog.String("kind", kind))
	return Result{Token: token, Strategy: StrategyLocal}, nil
}

// ResourceID возвращает числовой идентификатор как int64, иначе исходную строку.
// Metabase ожидает числовые id числом JSON, entity_id — строкой.
func ResourceID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
