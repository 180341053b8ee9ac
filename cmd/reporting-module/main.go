// Точка входа Reporting Module — мост между приложением и Metabase.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиент Metabase и стратегию выпуска токенов, сервисный слой,
// topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bigkaa/reporting-module/internal/api/handlers"
	"github.com/bigkaa/reporting-module/internal/api/middleware"
	"github.com/bigkaa/reporting-module/internal/config"
	"github.com/bigkaa/reporting-module/internal/database"
	"github.com/bigkaa/reporting-module/internal/metabase"
	"github.com/bigkaa/reporting-module/internal/repository"
	"github.com/bigkaa/reporting-module/internal/server"
	"github.com/bigkaa/reporting-module/internal/service"
	"github.com/bigkaa/reporting-module/internal/tokenmint"
)

func main() {
	// 0. Локальный .env (если есть) не перекрывает уже заданные переменные
	_ = godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Reporting Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if cfg.MetabaseDBID == "" {
		logger.Warn("RM_METABASE_DB_ID не задана, поиск по ресурсам и создание моделей недоступны")
	}
	if len(cfg.DefaultCollectionIDs) == 0 {
		logger.Warn("RM_DEFAULT_COLLECTION_IDS не задана, пользователи без маппинга не видят артефактов")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент Metabase
	mbClient, err := metabase.New(cfg.MetabaseSiteURL, cfg.MetabaseAPIKey, cfg.MetabaseCACertPath, cfg.MetabaseTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента Metabase", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Стратегия выпуска токенов (local или delegated)
	minter := tokenmint.New(tokenmint.Options{
		EmbeddingSecret:  cfg.EmbeddingSecretKey,
		SSOSecret:        cfg.SSOSharedSecret,
		ManageServiceURL: cfg.ManageServiceURL,
		ManageServiceKey: cfg.ManageServiceKey,
		ClientID:         cfg.ClientID,
	}, &http.Client{Timeout: cfg.MetabaseTimeout}, logger)

	// 7. Repository и scope
	mappingRepo := repository.NewMappingRepository(pool)
	scopes := service.NewScopeResolver(mappingRepo, cfg.DefaultCollectionIDs, cfg.DefaultGroupIDs, logger)

	// 8. Services
	artifactsSvc := service.NewArtifactService(mbClient, scopes, service.DiscoveryOptions{
		DatabaseID: cfg.MetabaseDBID,
		PageSize:   cfg.DiscoveryPageSize,
		MaxResults: cfg.DiscoveryMaxResults,
		Workers:    cfg.DiscoveryWorkers,
	}, logger)
	embeddingSvc := service.NewEmbeddingService(minter, scopes, mbClient.SiteURL(), logger)
	publishingSvc := service.NewPublishingService(mbClient, scopes, cfg.MetabaseDBID, logger)
	mappingsSvc := service.NewMappingService(mappingRepo, logger)

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL, Metabase, Keycloak)
	dephealthSvc, err := service.NewDephealthService(
		"reporting-module",
		cfg.DephealthGroup,
		service.DephealthTargets{
			DB:          pgDB,
			PostgresURL: cfg.DatabaseURL(),
			MetabaseURL: cfg.MetabaseSiteURL,
			JWKSURL:     cfg.JWTJWKSURL,
		},
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWKSCACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.RoleEditorGroups,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 11. Readiness checkers
	kcChecker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), mbClient, kcChecker)

	// 12. API handler и HTTP-сервер
	apiHandler := handlers.NewAPIHandler(healthHandler, artifactsSvc, embeddingSvc, publishingSvc, mappingsSvc, logger)
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware())

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Reporting Module остановлен")
}
