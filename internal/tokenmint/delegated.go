package tokenmint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Типы встраивания во внешнем сервисе управления.
const (
	embeddingStatic      = "static"
	embeddingInteractive = "interactive"
)

// maxResponseBody — ограничение размера ответа сервиса управления.
const maxResponseBody = 1 << 20

// DelegatedMinter получает токены у внешнего сервиса управления:
// POST {url}/api/v1/token?domain=&embedding_type=[&og_user_id=].
type DelegatedMinter struct {
	baseURL    string
	serviceKey string
	clientID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDelegatedMinter создаёт DelegatedMinter.
func NewDelegatedMinter(baseURL, serviceKey, clientID string, httpClient *http.Client, logger *slog.Logger) *DelegatedMinter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DelegatedMinter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		clientID:   clientID,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "tokenmint")),
	}
}

// Strategy возвращает StrategyDelegated.
func (m *DelegatedMinter) Strategy() Strategy { return StrategyDelegated }

// MintEmbed запрашивает static-токен для артефакта.
func (m *DelegatedMinter) MintEmbed(ctx context.Context, c EmbedClaims) (Result, error) {
	params := url.Values{}
	params.Set("domain", m.clientID)
	params.Set("embedding_type", embeddingStatic)

	payload := map[string]any{
		"resources": map[string]any{c.Kind: ResourceID(c.ID)},
	}
	return m.mint(ctx, params, payload, kindEmbed)
}

// MintSSO запрашивает interactive-токен пользователя.
func (m *DelegatedMinter) MintSSO(ctx context.Context, c SSOClaims) (Result, error) {
	params := url.Values{}
	params.Set("domain", m.clientID)
	params.Set("embedding_type", embeddingInteractive)
	if c.PlatformUUID != "" {
		params.Set("og_user_id", c.PlatformUUID)
	}

	groups := c.Groups
	if groups == nil {
		groups = []string{}
	}
	payload := map[string]any{
		"email":  c.Email,
		"groups": groups,
	}
	if c.FirstName != "" && c.LastName != "" {
		payload["firstName"] = c.FirstName
		payload["lastName"] = c.LastName
	}
	return m.mint(ctx, params, payload, kindSSO)
}

// mint выполняет запрос и извлекает поле token.
// Любая ошибка транспорта, статус не 2xx, невалидный JSON или пустой token — MintingError.
func (m *DelegatedMinter) mint(ctx context.Context, params url.Values, payload map[string]any, kind string) (Result, error) {
	token, err := m.request(ctx, params, payload)
	observe(StrategyDelegated, kind, err)
	if err != nil {
		m.logger.Warn("Сервис управления не выдал токен",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}
	return Result{Token: token, Strategy: StrategyDelegated}, nil
}

func (m *DelegatedMinter) request(ctx context.Context, params url.Values, payload map[string]any) (string, error) {
	fail := func(reason string, err error) (string, error) {
		return "", &MintingError{Strategy: StrategyDelegated, Reason: reason, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fail("сериализация запроса", err)
	}

	reqURL := m.baseURL + "/api/v1/token?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fail("создание запроса", err)
	}
	req.Header.Set("Authorization", "Token "+m.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fail("сервис управления недоступен", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fail("чтение ответа", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Sprintf("сервис управления вернул статус %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fail("не удалось разобрать ответ сервиса управления", err)
	}
	if parsed.Token == "" {
		return fail("в ответе сервиса управления нет токена", nil)
	}
	return parsed.Token, nil
}
