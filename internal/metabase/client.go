// Пакет metabase — HTTP-клиент REST API Metabase.
// Методы не возвращают ошибок: статус не 2xx, сбой транспорта или
// невалидный JSON дают nil, а причина пишется в лог.
package metabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// maxResponseBody — ограничение размера ответа Metabase.
const maxResponseBody = 32 << 20

// Исходы запросов для метрики rm_metabase_requests_total.
const (
	outcomeOK         = "ok"
	outcomeStatus     = "bad_status"
	outcomeTransport  = "transport_error"
	outcomeBadPayload = "bad_payload"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rm_metabase_requests_total",
		Help: "Количество запросов к API Metabase по исходу",
	},
	[]string{"method", "outcome"},
)

// Client — клиент API Metabase с аутентификацией по API-ключу.
type Client struct {
	httpClient *http.Client
	siteURL    string
	apiKey     string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	logger     *slog.Logger
}

// New создаёт клиент Metabase.
// siteURL — базовый URL Metabase (например, https://metabase.example.com).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// timeout — таймаут HTTP-запросов (RM_METABASE_TIMEOUT).
func New(siteURL, apiKey, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата Metabase: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат Metabase добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: httpClient,
		siteURL:    strings.TrimRight(siteURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With(slog.String("component", "metabase_client")),
	}, nil
}

// SiteURL возвращает базовый URL Metabase.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// Get выполняет GET {siteURL}{path}.
func (c *Client) Get(ctx context.Context, path string) json.RawMessage {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post выполняет POST {siteURL}{path} с JSON-телом.
func (c *Client) Post(ctx context.Context, path string, body any) json.RawMessage {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put выполняет PUT {siteURL}{path} с JSON-телом.
func (c *Client) Put(ctx context.Context, path string, body any) json.RawMessage {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) json.RawMessage {
	log := c.logger.With(slog.String("method", method), slog.String("path", path))

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.Error("Сериализация тела запроса", slog.String("error", err.Error()))
			requestsTotal.WithLabelValues(method, outcomeBadPayload).Inc()
			return nil
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.siteURL+path, reader)
	if err != nil {
		log.Error("Создание запроса к Metabase", slog.String("error", err.Error()))
		requestsTotal.WithLabelValues(method, outcomeTransport).Inc()
		return nil
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		log.Warn("Metabase недоступен", slog.String("error", err.Error()))
		requestsTotal.WithLabelValues(method, outcomeTransport).Inc()
		return nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		log.Warn("Чтение ответа Metabase", slog.String("error", err.Error()))
		requestsTotal.WithLabelValues(method, outcomeTransport).Inc()
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Debug("Metabase вернул статус",
			slog.String("status", strconv.Itoa(resp.StatusCode)),
		)
		requestsTotal.WithLabelValues(method, outcomeStatus).Inc()
		return nil
	}

	if !json.Valid(data) {
		log.Warn("Metabase вернул невалидный JSON")
		requestsTotal.WithLabelValues(method, outcomeBadPayload).Inc()
		return nil
	}

	requestsTotal.WithLabelValues(method, outcomeOK).Inc()
	return json.RawMessage(data)
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
