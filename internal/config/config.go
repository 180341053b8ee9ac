// Пакет config — загрузка и валидация конфигурации Reporting Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Reporting Module.
// После Load() значение не изменяется и передаётся в конструкторы компонентов.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (по умолчанию 8040)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL (таблица reporting_mapping) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Metabase ---

	// Базовый URL Metabase (без trailing slash), используется и для embed URL
	MetabaseSiteURL string
	// API-ключ Metabase (заголовок x-api-key)
	MetabaseAPIKey string
	// ID базы данных Metabase, в которой лежат таблицы ресурсов
	MetabaseDBID string
	// Таймаут HTTP-запросов к Metabase
	MetabaseTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений с Metabase (опционально)
	MetabaseCACertPath string

	// --- Выпуск токенов ---

	// Секрет подписи static embedding токенов (HS256)
	EmbeddingSecretKey string
	// Общий секрет Metabase JWT SSO (HS256)
	SSOSharedSecret string
	// URL внешнего сервиса выпуска токенов; вместе с ключом включает делегированный режим
	ManageServiceURL string
	// Ключ внешнего сервиса выпуска токенов
	ManageServiceKey string
	// Идентификатор тенанта (параметр domain) во внешнем сервисе
	ClientID string

	// --- Scope по умолчанию (пользователь без маппинга) ---

	DefaultCollectionIDs []string
	DefaultGroupIDs      []string

	// --- Поиск артефактов ---

	// Размер страницы листинга коллекции
	DiscoveryPageSize int
	// Максимум возвращаемых артефактов для поиска по автору
	DiscoveryMaxResults int
	// Ширина пула параллельных запросов деталей
	DiscoveryWorkers int

	// --- JWT (входящие токены Keycloak) ---

	KeycloakURL   string
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Путь к CA-сертификату для JWKS (опционально)
	JWKSCACertPath      string
	JWKSClientTimeout   time.Duration
	JWKSRefreshInterval time.Duration
	JWTLeeway           time.Duration

	// --- Маппинг групп → ролей ---

	// Группы Keycloak, дающие роль admin (управление маппингами)
	RoleAdminGroups []string
	// Группы Keycloak, дающие роль editor (работа с отчётами)
	RoleEditorGroups []string

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// RM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("RM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("RM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("RM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// RM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("RM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("RM_LOG_LEVEL: %w", err)
	}

	// RM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("RM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("RM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("RM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("RM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("RM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if err := loadDatabase(cfg); err != nil {
		return nil, err
	}

	// --- Metabase ---

	// RM_METABASE_SITE_URL — обязательный
	cfg.MetabaseSiteURL, err = getEnvRequired("RM_METABASE_SITE_URL")
	if err != nil {
		return nil, err
	}
	cfg.MetabaseSiteURL = strings.TrimRight(cfg.MetabaseSiteURL, "/")

	cfg.MetabaseAPIKey = getEnvDefault("RM_METABASE_API_KEY", "")
	cfg.MetabaseDBID = getEnvDefault("RM_METABASE_DB_ID", "")
	if cfg.MetabaseDBID != "" {
		if _, convErr := strconv.Atoi(cfg.MetabaseDBID); convErr != nil {
			return nil, fmt.Errorf("RM_METABASE_DB_ID: некорректное целое число: %q", cfg.MetabaseDBID)
		}
	}

	// RM_METABASE_TIMEOUT — таймаут запросов к Metabase (по умолчанию 30s)
	cfg.MetabaseTimeout, err = getEnvDurationFallback("RM_METABASE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_METABASE_TIMEOUT: %w", err)
	}
	cfg.MetabaseCACertPath = getEnvDefault("RM_METABASE_CA_CERT_PATH", "")

	// --- Выпуск токенов ---

	cfg.EmbeddingSecretKey = getEnvDefault("RM_EMBEDDING_SECRET_KEY", "")
	cfg.SSOSharedSecret = getEnvDefault("RM_SSO_SHARED_SECRET", "")
	cfg.ManageServiceURL = strings.TrimRight(getEnvDefault("RM_MANAGE_SERVICE_URL", ""), "/")
	cfg.ManageServiceKey = getEnvDefault("RM_MANAGE_SERVICE_KEY", "")
	cfg.ClientID = getEnvDefault("RM_CLIENT_ID", "")

	// --- Scope по умолчанию ---

	cfg.DefaultCollectionIDs = parseCSV(getEnvDefault("RM_DEFAULT_COLLECTION_IDS", ""))
	cfg.DefaultGroupIDs = parseCSV(getEnvDefault("RM_DEFAULT_GROUP_IDS", ""))

	// --- Поиск артефактов ---

	cfg.DiscoveryPageSize, err = getEnvInt("RM_DISCOVERY_PAGE_SIZE", 30)
	if err != nil {
		return nil, fmt.Errorf("RM_DISCOVERY_PAGE_SIZE: %w", err)
	}
	if cfg.DiscoveryPageSize < 1 || cfg.DiscoveryPageSize > 1000 {
		return nil, fmt.Errorf("RM_DISCOVERY_PAGE_SIZE: значение %d вне допустимого диапазона 1-1000", cfg.DiscoveryPageSize)
	}

	cfg.DiscoveryMaxResults, err = getEnvInt("RM_DISCOVERY_MAX_RESULTS", 5)
	if err != nil {
		return nil, fmt.Errorf("RM_DISCOVERY_MAX_RESULTS: %w", err)
	}
	if cfg.DiscoveryMaxResults < 1 || cfg.DiscoveryMaxResults > 100 {
		return nil, fmt.Errorf("RM_DISCOVERY_MAX_RESULTS: значение %d вне допустимого диапазона 1-100", cfg.DiscoveryMaxResults)
	}

	cfg.DiscoveryWorkers, err = getEnvInt("RM_DISCOVERY_WORKERS", 10)
	if err != nil {
		return nil, fmt.Errorf("RM_DISCOVERY_WORKERS: %w", err)
	}
	if cfg.DiscoveryWorkers < 1 || cfg.DiscoveryWorkers > 64 {
		return nil, fmt.Errorf("RM_DISCOVERY_WORKERS: значение %d вне допустимого диапазона 1-64", cfg.DiscoveryWorkers)
	}

	// --- JWT ---

	if err := loadJWT(cfg); err != nil {
		return nil, err
	}

	// --- Маппинг групп → ролей ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("RM_ROLE_ADMIN_GROUPS", "reporting-admins"))
	cfg.RoleEditorGroups = parseCSV(getEnvDefault("RM_ROLE_EDITOR_GROUPS", "reporting-editors"))

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("RM_DEPHEALTH_GROUP", "reporting")
	cfg.DephealthCheckInterval, err = getEnvDuration("RM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("RM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("RM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// LoadDatabase загружает только параметры PostgreSQL.
// Используется CLI reportingctl, которому не нужны Metabase и JWT.
func LoadDatabase() (*Config, error) {
	cfg := &Config{LogLevel: slog.LevelInfo, LogFormat: "text"}
	if err := loadDatabase(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDatabase заполняет параметры подключения к PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	cfg.DBHost, err = getEnvRequired("RM_DB_HOST")
	if err != nil {
		return err
	}

	cfg.DBPort, err = getEnvInt("RM_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("RM_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("RM_DB_NAME")
	if err != nil {
		return err
	}

	cfg.DBUser, err = getEnvRequired("RM_DB_USER")
	if err != nil {
		return err
	}

	cfg.DBPassword, err = getEnvRequired("RM_DB_PASSWORD")
	if err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("RM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("RM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	return nil
}

// loadJWT заполняет параметры проверки входящих JWT.
func loadJWT(cfg *Config) error {
	var err error

	cfg.KeycloakURL, err = getEnvRequired("RM_KEYCLOAK_URL")
	if err != nil {
		return err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakRealm = getEnvDefault("RM_KEYCLOAK_REALM", "reporting")

	cfg.JWTIssuer = getEnvDefault("RM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("RM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWKSCACertPath = getEnvDefault("RM_JWKS_CA_CERT_PATH", "")

	cfg.JWKSClientTimeout, err = getEnvDurationFallback("RM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return fmt.Errorf("RM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDurationFallback("RM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return fmt.Errorf("RM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("RM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return fmt.Errorf("RM_JWT_LEEWAY: %w", err)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// DelegatedMinting сообщает, настроен ли внешний сервис выпуска токенов.
func (c *Config) DelegatedMinting() bool {
	return c.ManageServiceURL != "" && c.ManageServiceKey != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvDurationFallback возвращает time.Duration из переменной окружения.
// Если переменная не задана, используется fallbackVal.
// Если задана — парсится и валидируется (> 0).
func getEnvDurationFallback(key string, fallbackVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallbackVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
