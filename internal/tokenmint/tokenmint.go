// Пакет tokenmint — выпуск короткоживущих токенов Metabase для встраивания
// артефактов (static embedding) и входа через JWT SSO (interactive embedding).
//
// Две взаимоисключающие стратегии:
//   - local: подпись HS256 общим секретом, без сетевых вызовов;
//   - delegated: запрос к внешнему сервису управления токенами.
//
// Стратегия выбирается в New по наличию URL и ключа сервиса управления.
// Токены не логируются.
package tokenmint

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTTL — срок жизни токена локальной подписи.
const DefaultTTL = 10 * time.Minute

// Strategy — способ выпуска токена.
type Strategy string

const (
	// StrategyLocal — локальная подпись HS256.
	StrategyLocal Strategy = "local"
	// StrategyDelegated — выпуск внешним сервисом управления.
	StrategyDelegated Strategy = "delegated"
)

// ErrTokenMinting — сигнальная ошибка для errors.Is: токен не выпущен.
var ErrTokenMinting = errors.New("не удалось выпустить токен Metabase")

// MintingError — ошибка выпуска токена с описанием причины.
type MintingError struct {
	// Strategy — стратегия, которой выпускался токен
	Strategy Strategy
	// Reason — человекочитаемая причина
	Reason string
	// Err — исходная ошибка (может быть nil)
	Err error
}

func (e *MintingError) Error() string {
	msg := ErrTokenMinting.Error() + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap возвращает исходную ошибку.
func (e *MintingError) Unwrap() error { return e.Err }

// Is сопоставляет MintingError с ErrTokenMinting.
func (e *MintingError) Is(target error) bool { return target == ErrTokenMinting }

// EmbedClaims — данные static embedding токена.
type EmbedClaims struct {
	// Kind — тип артефакта в терминах embed URL: question или dashboard
	Kind string
	// ID — идентификатор артефакта; числовой кодируется числом JSON
	ID string
}

// SSOClaims — данные JWT SSO токена пользователя.
type SSOClaims struct {
	Email  string
	Groups []string
	// FirstName, LastName — пустые строки означают, что имя не передаётся
	FirstName string
	LastName  string
	// PlatformUUID — идентификатор во внешней платформе (только delegated)
	PlatformUUID string
}

// Result — выпущенный токен и использованная стратегия.
type Result struct {
	Token    string
	Strategy Strategy
}

// Minter выпускает токены Metabase.
type Minter interface {
	MintEmbed(ctx context.Context, claims EmbedClaims) (Result, error)
	MintSSO(ctx context.Context, claims SSOClaims) (Result, error)
	Strategy() Strategy
}

// Options — параметры выпуска токенов.
type Options struct {
	// EmbeddingSecret — секрет static embedding (local)
	EmbeddingSecret string
	// SSOSecret — общий секрет JWT SSO (local)
	SSOSecret string
	// ManageServiceURL — URL сервиса управления (delegated)
	ManageServiceURL string
	// ManageServiceKey — ключ сервиса управления (delegated)
	ManageServiceKey string
	// ClientID — идентификатор тенанта, параметр domain (delegated)
	ClientID string
	// TTL — срок жизни локального токена; 0 — DefaultTTL
	TTL time.Duration
	// Now — источник времени; nil — time.Now
	Now func() time.Time
}

// New создаёт Minter: delegated, если заданы URL и ключ сервиса управления, иначе local.
// httpClient используется только стратегией delegated.
func New(opts Options, httpClient *http.Client, logger *slog.Logger) Minter {
	if opts.ManageServiceURL != "" && opts.ManageServiceKey != "" {
		logger.Info("Выпуск токенов через сервис управления",
			slog.String("url", opts.ManageServiceURL),
			slog.String("client_id", opts.ClientID),
		)
		return NewDelegatedMinter(opts.ManageServiceURL, opts.ManageServiceKey, opts.ClientID, httpClient, logger)
	}
	logger.Info("Выпуск токенов локальной подписью HS256")
	return NewLocalSigner(opts.EmbeddingSecret, opts.SSOSecret, opts.TTL, opts.Now, logger)
}

// Виды токенов для метрик.
const (
	kindEmbed = "embed"
	kindSSO   = "sso"
)

var mintTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rm_token_mint_total",
		Help: "Количество попыток выпуска токенов Metabase",
	},
	[]string{"strategy", "kind", "outcome"},
)

func observe(strategy Strategy, kind string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	mintTotal.WithLabelValues(string(strategy), kind, outcome).Inc()
}
