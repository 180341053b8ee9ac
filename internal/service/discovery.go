package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/bigkaa/reporting-module/internal/collector"
	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/nativequery"
)

// RemoteClient — доступ к REST API Metabase.
// Любой сбой (статус не 2xx, транспорт, невалидный JSON) возвращается как nil.
type RemoteClient interface {
	Get(ctx context.Context, path string) json.RawMessage
	Post(ctx context.Context, path string, body any) json.RawMessage
	Put(ctx context.Context, path string, body any) json.RawMessage
}

// Модели листинга коллекций Metabase.
const (
	modelCard      = "card"
	modelDashboard = "dashboard"
)

// DiscoveryOptions — параметры поиска артефактов.
type DiscoveryOptions struct {
	// DatabaseID — ID базы Metabase с таблицами ресурсов
	DatabaseID string
	// PageSize — размер страницы листинга коллекции
	PageSize int
	// MaxResults — лимит результатов поиска по автору
	MaxResults int
	// Workers — ширина пула загрузки деталей
	Workers int
}

// ArtifactService — поиск артефактов Metabase в пределах scope пользователя.
// Сбои Metabase не возвращаются как ошибки: результат — пустой или частичный список.
type ArtifactService struct {
	remote     RemoteClient
	scopes     *ScopeResolver
	dbID       string
	cards      *collector.Collector[model.ItemRef, model.ArtifactDetail]
	dashboards *collector.Collector[model.ItemRef, model.ArtifactDetail]
	logger     *slog.Logger
}

// NewArtifactService создаёт ArtifactService.
func NewArtifactService(remote RemoteClient, scopes *ScopeResolver, opts DiscoveryOptions, logger *slog.Logger) *ArtifactService {
	newCollector := func(name string) *collector.Collector[model.ItemRef, model.ArtifactDetail] {
		return collector.New[model.ItemRef, model.ArtifactDetail](collector.Options{
			Name:       name,
			PageSize:   opts.PageSize,
			MaxResults: opts.MaxResults,
			Workers:    opts.Workers,
		}, logger)
	}
	return &ArtifactService{
		remote:     remote,
		scopes:     scopes,
		dbID:       opts.DatabaseID,
		cards:      newCollector("created_cards"),
		dashboards: newCollector("created_dashboards"),
		logger:     logger.With(slog.String("component", "artifact_service")),
	}
}

// NormalizeModelType приводит тип листинга к модели Metabase: question — синоним card.
// Неподдерживаемый тип — пустая строка.
func NormalizeModelType(modelType string) string {
	switch modelType {
	case modelCard, string(model.KindQuestion):
		return modelCard
	case modelDashboard:
		return modelDashboard
	default:
		return ""
	}
}

// ListCollectionItems возвращает элементы типа modelType из всех коллекций scope,
// от недавно изменённых к старым.
func (s *ArtifactService) ListCollectionItems(ctx context.Context, id model.Identity, modelType string) []model.CollectionItem {
	items := []model.CollectionItem{}
	mt := NormalizeModelType(modelType)
	if mt == "" {
		return items
	}

	scope := s.scopes.resolveForDiscovery(ctx, id)
	for _, collectionID := range scope.CollectionIDs {
		raw := s.remote.Get(ctx, fmt.Sprintf("/api/collection/%s/items?models=%s", url.PathEscape(collectionID), mt))
		items = append(items, decodeData[model.CollectionItem](raw)...)
	}

	SortByRecency(items, func(c model.CollectionItem) (string, string) { return c.LastEditedAt, c.Name })
	return items
}

// FindSQLQuestions возвращает native SQL вопросы из scope, в тексте которых встречается resourceID.
func (s *ArtifactService) FindSQLQuestions(ctx context.Context, id model.Identity, resourceID string) []model.ArtifactSummary {
	result := []model.ArtifactSummary{}
	scope := s.scopes.resolveForDiscovery(ctx, id)
	if scope.IsEmpty() || resourceID == "" {
		return result
	}

	key := model.MatchKey{ResourceID: resourceID}
	for _, card := range s.databaseCards(ctx) {
		if scope.Contains(card.CollectionID) && nativequery.Matches(card, key) {
			result = append(result, card)
		}
	}

	SortByKindName(result, summaryKindName)
	return result
}

// FindCardsByTable возвращает карточки таблицы tableID из scope.
func (s *ArtifactService) FindCardsByTable(ctx context.Context, id model.Identity, tableID int64) []model.ArtifactSummary {
	result := []model.ArtifactSummary{}
	scope := s.scopes.resolveForDiscovery(ctx, id)
	if scope.IsEmpty() {
		return result
	}

	for _, card := range s.tableCards(ctx, tableID) {
		if scope.Contains(card.CollectionID) {
			result = append(result, card)
		}
	}

	SortByKindName(result, summaryKindName)
	return result
}

// FindChartList возвращает вопросы, построенные по таблице tableID
// или ссылающиеся на resourceID в native SQL. Сортировка — от новых к старым.
func (s *ArtifactService) FindChartList(ctx context.Context, id model.Identity, tableID *int64, resourceID string) []model.ArtifactSummary {
	scope := s.scopes.resolveForDiscovery(ctx, id)
	return s.chartList(ctx, scope, model.MatchKey{TableID: tableID, ResourceID: resourceID})
}

// FindForResource определяет таблицу ресурса в базе Metabase и возвращает связанные вопросы.
// Если таблица не найдена, остаётся только поиск по тексту SQL.
func (s *ArtifactService) FindForResource(ctx context.Context, id model.Identity, resourceID string) []model.ArtifactSummary {
	scope := s.scopes.resolveForDiscovery(ctx, id)
	if scope.IsEmpty() || resourceID == "" {
		return []model.ArtifactSummary{}
	}
	tableID := s.ResolveTableID(ctx, resourceID)
	return s.chartList(ctx, scope, model.MatchKey{TableID: tableID, ResourceID: resourceID})
}

func (s *ArtifactService) chartList(ctx context.Context, scope model.AccessScope, key model.MatchKey) []model.ArtifactSummary {
	result := []model.ArtifactSummary{}
	if scope.IsEmpty() || (key.TableID == nil && key.ResourceID == "") {
		return result
	}

	for _, card := range s.databaseCards(ctx) {
		if !scope.Contains(card.CollectionID) || !nativequery.Matches(card, key) {
			continue
		}
		// по таблице подходят только вопросы
		if card.TableID != nil && card.Kind != model.KindQuestion {
			continue
		}
		result = append(result, card)
	}

	SortByRecency(result, func(c model.ArtifactSummary) (string, string) { return c.UpdatedAt, c.Name })
	return result
}

// FindCreatedCards возвращает до MaxResults карточек из scope, автор которых — email.
// Email сравнивается без учёта регистра и пробелов по краям.
func (s *ArtifactService) FindCreatedCards(ctx context.Context, id model.Identity, email string) []model.ArtifactDetail {
	email = strings.TrimSpace(email)
	if email == "" {
		return []model.ArtifactDetail{}
	}
	scope := s.scopes.resolveForDiscovery(ctx, id)

	result := s.cards.Collect(ctx, scope.CollectionIDs,
		s.listCollectionPage(modelCard),
		s.fetchDetail("/api/card/%d", ""),
		func(d model.ArtifactDetail) bool {
			return strings.EqualFold(strings.TrimSpace(d.CreatorEmail), email)
		},
	)

	SortByRecency(result, detailRecency)
	return result
}

// FindCreatedDashboards возвращает до MaxResults дашбордов из scope, созданных пользователем Metabase с этим email.
func (s *ArtifactService) FindCreatedDashboards(ctx context.Context, id model.Identity, email string) []model.ArtifactDetail {
	email = strings.TrimSpace(email)
	if email == "" {
		return []model.ArtifactDetail{}
	}
	scope := s.scopes.resolveForDiscovery(ctx, id)
	if scope.IsEmpty() {
		return []model.ArtifactDetail{}
	}

	userID, ok := s.metabaseUserID(ctx, email)
	if !ok {
		return []model.ArtifactDetail{}
	}

	result := s.dashboards.Collect(ctx, scope.CollectionIDs,
		s.listCollectionPage(modelDashboard),
		s.fetchDetail("/api/dashboard/%d", model.KindDashboard),
		func(d model.ArtifactDetail) bool {
			return d.CreatorID != nil && *d.CreatorID == userID
		},
	)

	SortByRecency(result, detailRecency)
	return result
}

// FindModelForTable возвращает первую модель, построенную по таблице, или nil.
func (s *ArtifactService) FindModelForTable(ctx context.Context, tableID int64) *model.ArtifactSummary {
	for _, card := range s.tableCards(ctx, tableID) {
		if card.Kind == model.KindModel {
			return &card
		}
	}
	return nil
}

// ListEmbeddable возвращает ID опубликованных для встраивания карточек или дашбордов.
func (s *ArtifactService) ListEmbeddable(ctx context.Context, modelType string) []int64 {
	ids := []int64{}
	mt := NormalizeModelType(modelType)
	if mt == "" {
		return ids
	}
	for _, ref := range decodeList[model.ItemRef](s.remote.Get(ctx, "/api/"+mt+"/embeddable")) {
		ids = append(ids, ref.ID)
	}
	return ids
}

// ResolveTableID ищет таблицу с именем resourceID в базе Metabase.
func (s *ArtifactService) ResolveTableID(ctx context.Context, resourceID string) *int64 {
	if s.dbID == "" {
		return nil
	}
	raw := s.remote.Get(ctx, fmt.Sprintf("/api/database/%s?include=tables", url.PathEscape(s.dbID)))
	if raw == nil {
		return nil
	}
	var db struct {
		Tables []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"tables"`
	}
	if err := json.Unmarshal(raw, &db); err != nil {
		s.logger.Debug("Неожиданный формат ответа /api/database", slog.String("error", err.Error()))
		return nil
	}
	for _, t := range db.Tables {
		if t.Name == resourceID {
			id := t.ID
			return &id
		}
	}
	return nil
}

// databaseCards возвращает все карточки базы ресурсов.
func (s *ArtifactService) databaseCards(ctx context.Context) []model.ArtifactSummary {
	if s.dbID == "" {
		s.logger.Warn("RM_METABASE_DB_ID не задан, поиск по базе пропущен")
		return nil
	}
	return decodeList[model.ArtifactSummary](
		s.remote.Get(ctx, "/api/card?f=database&model_id="+url.QueryEscape(s.dbID)))
}

func (s *ArtifactService) tableCards(ctx context.Context, tableID int64) []model.ArtifactSummary {
	return decodeList[model.ArtifactSummary](
		s.remote.Get(ctx, fmt.Sprintf("/api/card?f=table&model_id=%d", tableID)))
}

// listCollectionPage — страница элементов коллекции, отсортированных по времени изменения.
func (s *ArtifactService) listCollectionPage(modelType string) collector.ListFunc[model.ItemRef] {
	return func(ctx context.Context, collectionID string, limit, offset int) []model.ItemRef {
		path := fmt.Sprintf(
			"/api/collection/%s/items?models=%s&sort_column=last_edited_at&sort_direction=desc&limit=%d&offset=%d",
			url.PathEscape(collectionID), modelType, limit, offset)
		return decodeData[model.ItemRef](s.remote.Get(ctx, path))
	}
}

// fetchDetail загружает детали по шаблону пути. kind, если задан, проставляется в результат.
func (s *ArtifactService) fetchDetail(pathFormat string, kind model.ArtifactKind) collector.FetchFunc[model.ItemRef, model.ArtifactDetail] {
	return func(ctx context.Context, ref model.ItemRef) (model.ArtifactDetail, bool) {
		if ref.ID == 0 {
			return model.ArtifactDetail{}, false
		}
		raw := s.remote.Get(ctx, fmt.Sprintf(pathFormat, ref.ID))
		if raw == nil {
			return model.ArtifactDetail{}, false
		}
		var d model.ArtifactDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			s.logger.Debug("Неожиданный формат деталей артефакта",
				slog.Int64("id", ref.ID),
				slog.String("error", err.Error()),
			)
			return model.ArtifactDetail{}, false
		}
		if kind != "" {
			d.Kind = kind
		}
		return d, true
	}
}

// metabaseUserID ищет пользователя Metabase по email; берётся первое совпадение.
func (s *ArtifactService) metabaseUserID(ctx context.Context, email string) (int64, bool) {
	users := decodeData[model.ItemRef](s.remote.Get(ctx, "/api/user?query="+url.QueryEscape(email)))
	if len(users) == 0 || users[0].ID == 0 {
		return 0, false
	}
	return users[0].ID, true
}

func summaryKindName(c model.ArtifactSummary) (string, string) { return string(c.Kind), c.Name }

func detailRecency(d model.ArtifactDetail) (string, string) { return d.UpdatedAt, d.Name }

// decodeList разбирает JSON-массив; элементы неожиданного формата пропускаются.
func decodeList[T any](raw json.RawMessage) []T {
	if raw == nil {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// decodeData разбирает ответ вида {"data": [...]}.
func decodeData[T any](raw json.RawMessage) []T {
	if raw == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return decodeList[T](envelope.Data)
}
