package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/repository"
)

// MappingReader — чтение маппинга пользователя, достаточное для определения scope.
type MappingReader interface {
	GetByUserID(ctx context.Context, userID string) (*model.Mapping, error)
}

// ScopeResolver определяет коллекции и группы Metabase, доступные пользователю.
type ScopeResolver struct {
	mappings MappingReader
	defaults model.AccessScope
	logger   *slog.Logger
}

// NewScopeResolver создаёт ScopeResolver.
// defaultCollections и defaultGroups используются для пользователей без маппинга.
func NewScopeResolver(mappings MappingReader, defaultCollections, defaultGroups []string, logger *slog.Logger) *ScopeResolver {
	return &ScopeResolver{
		mappings: mappings,
		defaults: model.AccessScope{
			CollectionIDs: defaultCollections,
			GroupIDs:      defaultGroups,
		},
		logger: logger.With(slog.String("component", "scope_resolver")),
	}
}

// Resolve возвращает scope пользователя.
// Отсутствие маппинга не ошибка: возвращается scope по умолчанию без platform UUID.
func (r *ScopeResolver) Resolve(ctx context.Context, id model.Identity) (model.AccessScope, error) {
	if id.UserID == "" {
		return r.defaults, nil
	}

	m, err := r.mappings.GetByUserID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return r.defaults, nil
		}
		return model.AccessScope{}, fmt.Errorf("определение scope пользователя %s: %w", id.UserID, err)
	}
	return m.Scope(), nil
}

// resolveForDiscovery — Resolve для операций поиска: при сбое хранилища
// возвращается пустой scope, поиск не выполняет ни одного удалённого вызова.
func (r *ScopeResolver) resolveForDiscovery(ctx context.Context, id model.Identity) model.AccessScope {
	scope, err := r.Resolve(ctx, id)
	if err != nil {
		r.logger.Error("Scope не определён, поиск вернёт пустой результат",
			slog.String("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
		return model.AccessScope{}
	}
	return scope
}
