// publishing.go — публикация артефактов для встраивания и создание моделей.
// В отличие от поиска, отказ Metabase здесь — ошибка ErrRemoteRejected.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/bigkaa/reporting-module/internal/domain/model"
)

// fullTextField — служебная колонка полнотекстового поиска, не входит в модель.
const fullTextField = "_full_text"

// PublishingService — включение embedding и создание моделей в Metabase.
type PublishingService struct {
	remote RemoteClient
	scopes *ScopeResolver
	dbID   string
	logger *slog.Logger
}

// NewPublishingService создаёт PublishingService.
func NewPublishingService(remote RemoteClient, scopes *ScopeResolver, dbID string, logger *slog.Logger) *PublishingService {
	return &PublishingService{
		remote: remote,
		scopes: scopes,
		dbID:   dbID,
		logger: logger.With(slog.String("component", "publishing_service")),
	}
}

// PublishCard включает встраивание карточки.
func (s *PublishingService) PublishCard(ctx context.Context, cardID int64) error {
	payload := map[string]any{"enable_embedding": true}
	if s.remote.Put(ctx, fmt.Sprintf("/api/card/%d", cardID), payload) == nil {
		return fmt.Errorf("%w: не удалось опубликовать карточку %d", ErrRemoteRejected, cardID)
	}
	s.logger.Info("Карточка опубликована", slog.Int64("card_id", cardID))
	return nil
}

// PublishDashboard включает встраивание дашборда.
// enableParams — все параметры дашборда становятся доступны во встраивании.
func (s *PublishingService) PublishDashboard(ctx context.Context, dashboardID int64, enableParams bool) error {
	path := fmt.Sprintf("/api/dashboard/%d", dashboardID)
	embeddingParams := map[string]string{}

	if enableParams {
		raw := s.remote.Get(ctx, path)
		if raw == nil {
			return fmt.Errorf("%w: дашборд %d недоступен", ErrRemoteRejected, dashboardID)
		}
		var dashboard struct {
			Parameters []struct {
				Slug string `json:"slug"`
			} `json:"parameters"`
		}
		if err := json.Unmarshal(raw, &dashboard); err != nil {
			return fmt.Errorf("%w: неожиданный формат дашборда %d: %v", ErrRemoteRejected, dashboardID, err)
		}
		for _, p := range dashboard.Parameters {
			if p.Slug != "" {
				embeddingParams[p.Slug] = "enabled"
			}
		}
	}

	payload := map[string]any{
		"enable_embedding": true,
		"embedding_params": embeddingParams,
	}
	if s.remote.Put(ctx, path, payload) == nil {
		return fmt.Errorf("%w: не удалось опубликовать дашборд %d", ErrRemoteRejected, dashboardID)
	}

	s.logger.Info("Дашборд опубликован",
		slog.Int64("dashboard_id", dashboardID),
		slog.Int("params", len(embeddingParams)),
	)
	return nil
}

// CreateModelRequest — параметры создания модели по таблице ресурса.
type CreateModelRequest struct {
	ResourceID  string
	Name        string
	Description string
}

// CreateModel создаёт модель Metabase по таблице ресурса в первой коллекции scope пользователя.
// Возвращает созданную card в исходном виде.
func (s *PublishingService) CreateModel(ctx context.Context, id model.Identity, req CreateModelRequest) (json.RawMessage, error) {
	req.ResourceID = strings.TrimSpace(req.ResourceID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ResourceID == "" {
		return nil, fmt.Errorf("%w: resource_id обязателен", ErrValidation)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name обязателен", ErrValidation)
	}
	dbID, err := strconv.ParseInt(s.dbID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: RM_METABASE_DB_ID не задан", ErrValidation)
	}

	scope, err := s.scopes.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return nil, fmt.Errorf("%w: нет коллекции для размещения модели", ErrValidation)
	}
	collectionID, err := strconv.ParseInt(scope.CollectionIDs[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный ID коллекции %q", ErrValidation, scope.CollectionIDs[0])
	}

	tableID, ok := s.searchTable(ctx, req.ResourceID)
	if !ok {
		return nil, fmt.Errorf("%w: таблица ресурса %s не найдена в Metabase", ErrRemoteRejected, req.ResourceID)
	}

	card := map[string]any{
		"name": req.Name,
		"dataset_query": map[string]any{
			"database": dbID,
			"type":     "query",
			"query": map[string]any{
				"source-table": tableID,
				"fields":       s.tableFields(ctx, tableID),
			},
		},
		"display":                "table",
		"displayIsLocked":        true,
		"visualization_settings": map[string]any{},
		"collection_id":          collectionID,
		"type":                   string(model.KindModel),
	}
	if req.Description != "" {
		card["description"] = req.Description
	}

	created := s.remote.Post(ctx, "/api/card", card)
	if created == nil {
		return nil, fmt.Errorf("%w: не удалось создать модель для %s", ErrRemoteRejected, req.ResourceID)
	}

	s.logger.Info("Модель создана",
		slog.String("resource_id", req.ResourceID),
		slog.Int64("table_id", tableID),
		slog.Int64("collection_id", collectionID),
	)
	return created, nil
}

// searchTable ищет таблицу ресурса через поиск Metabase.
func (s *PublishingService) searchTable(ctx context.Context, resourceID string) (int64, bool) {
	q := url.Values{}
	q.Set("q", resourceID)
	q.Set("table_db_id", s.dbID)
	q.Set("model", "table")

	type hit struct {
		TableName string `json:"table_name"`
		TableID   int64  `json:"table_id"`
	}
	for _, h := range decodeData[hit](s.remote.Get(ctx, "/api/search/?"+q.Encode())) {
		if h.TableName == resourceID && h.TableID != 0 {
			return h.TableID, true
		}
	}
	return 0, false
}

// tableFields возвращает ссылки на поля таблицы в формате MBQL, без служебных колонок.
func (s *PublishingService) tableFields(ctx context.Context, tableID int64) []any {
	fields := []any{}
	raw := s.remote.Get(ctx, fmt.Sprintf("/api/table/%d/query_metadata", tableID))
	if raw == nil {
		return fields
	}
	var meta struct {
		Fields []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			BaseType string `json:"base_type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		s.logger.Debug("Неожиданный формат query_metadata",
			slog.Int64("table_id", tableID),
			slog.String("error", err.Error()),
		)
		return fields
	}
	for _, f := range meta.Fields {
		if f.Name == fullTextField {
			continue
		}
		fields = append(fields, []any{"field", f.ID, map[string]any{"base_type": f.BaseType}})
	}
	return fields
}
