// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Reporting Module мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Metabase — HTTP checker к /api/health (critical)
//   - Keycloak — HTTP checker к JWKS endpoint realm (critical)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// metabaseHealthPath — health endpoint Metabase.
const metabaseHealthPath = "/api/health"

// DephealthTargets — адреса внешних зависимостей.
type DephealthTargets struct {
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PostgresURL — URL PostgreSQL (для метрик/лейблов, не для подключения)
	PostgresURL string
	// MetabaseURL — базовый URL Metabase
	MetabaseURL string
	// JWKSURL — полный URL JWKS endpoint Keycloak
	JWKSURL string
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения (e.g. "reporting-module")
//   - group — имя группы в метриках (RM_DEPHEALTH_GROUP)
//   - checkInterval — интервал проверки зависимостей (RM_DEPHEALTH_CHECK_INTERVAL)
//   - isEntry — при true добавляет лейбл isentry=yes ко всем зависимостям (DEPHEALTH_ISENTRY)
func NewDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, isEntry, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, isEntry,
		logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	isEntry bool,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	common := []dephealth.DependencyOption{
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}
	if isEntry {
		common = append(common, dephealth.WithLabel("isentry", "yes"))
	}

	pgDepOpts := append([]dephealth.DependencyOption{dephealth.FromURL(targets.PostgresURL)}, common...)

	mbDepOpts, err := httpDependencyOptions(targets.MetabaseURL+metabaseHealthPath, common)
	if err != nil {
		return nil, fmt.Errorf("metabase: %w", err)
	}
	kcDepOpts, err := httpDependencyOptions(targets.JWKSURL, common)
	if err != nil {
		return nil, fmt.Errorf("keycloak: %w", err)
	}

	opts := make([]dephealth.Option, 0, 4+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(targets.DB)), pgDepOpts...),
		dephealth.HTTP("metabase", mbDepOpts...),
		dephealth.HTTP("keycloak", kcDepOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// httpDependencyOptions разбивает URL проверки на адрес сервиса и health path.
func httpDependencyOptions(rawURL string, common []dephealth.DependencyOption) ([]dephealth.DependencyOption, error) {
	base, path, tls, err := splitHealthURL(rawURL)
	if err != nil {
		return nil, err
	}
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(base),
		dephealth.WithHTTPHealthPath(path),
	}
	if tls {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return append(opts, common...), nil
}

// splitHealthURL возвращает scheme://host, путь (с query, по умолчанию "/") и признак TLS.
func splitHealthURL(rawURL string) (base, path string, tls bool, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false, fmt.Errorf("некорректный URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", false, fmt.Errorf("некорректный URL %q: нужны схема и хост", rawURL)
	}
	path = u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host, path, u.Scheme == "https", nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + Metabase + Keycloak)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}
