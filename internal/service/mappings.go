// mappings.go — администрирование привязок пользователей к коллекциям и группам Metabase.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/reporting-module/internal/domain/model"
	"github.com/bigkaa/reporting-module/internal/repository"
)

// MappingUpdate — частичное обновление маппинга. nil — поле не меняется.
type MappingUpdate struct {
	PlatformUUID  *string
	Email         *string
	GroupIDs      *[]string
	CollectionIDs *[]string
}

// MappingService — CRUD маппингов.
type MappingService struct {
	repo   repository.MappingRepository
	logger *slog.Logger
}

// NewMappingService создаёт сервис маппингов.
func NewMappingService(repo repository.MappingRepository, logger *slog.Logger) *MappingService {
	return &MappingService{
		repo:   repo,
		logger: logger.With(slog.String("component", "mapping_service")),
	}
}

// Create создаёт маппинг. Обязательны user_id и email; platform_uuid, если задан, должен быть UUID.
func (s *MappingService) Create(ctx context.Context, m *model.Mapping) error {
	m.UserID = strings.TrimSpace(m.UserID)
	m.Email = strings.TrimSpace(m.Email)
	if m.UserID == "" {
		return fmt.Errorf("%w: user_id обязателен", ErrValidation)
	}
	if m.Email == "" {
		return fmt.Errorf("%w: email обязателен", ErrValidation)
	}
	if err := validatePlatformUUID(m.PlatformUUID); err != nil {
		return err
	}
	m.GroupIDs = cleanIDs(m.GroupIDs)
	m.CollectionIDs = cleanIDs(m.CollectionIDs)

	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("%w: маппинг пользователя '%s' уже существует", ErrConflict, m.UserID)
		}
		return fmt.Errorf("создание маппинга: %w", err)
	}

	s.logger.Info("Маппинг создан",
		slog.String("user_id", m.UserID),
		slog.Int("collections", len(m.CollectionIDs)),
		slog.Int("groups", len(m.GroupIDs)),
	)
	return nil
}

// Update применяет частичное обновление. Не переданные списки сохраняют прежние значения.
func (s *MappingService) Update(ctx context.Context, userID string, upd MappingUpdate) (*model.Mapping, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение маппинга для обновления: %w", err)
	}

	if upd.PlatformUUID != nil {
		if err := validatePlatformUUID(*upd.PlatformUUID); err != nil {
			return nil, err
		}
		m.PlatformUUID = *upd.PlatformUUID
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email не может быть пустым", ErrValidation)
		}
		m.Email = email
	}
	if upd.GroupIDs != nil {
		m.GroupIDs = cleanIDs(*upd.GroupIDs)
	}
	if upd.CollectionIDs != nil {
		m.CollectionIDs = cleanIDs(*upd.CollectionIDs)
	}

	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление маппинга: %w", err)
	}

	s.logger.Info("Маппинг обновлён", slog.String("user_id", userID))
	return m, nil
}

// Delete удаляет маппинг.
func (s *MappingService) Delete(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление маппинга: %w", err)
	}

	s.logger.Info("Маппинг удалён", slog.String("user_id", userID))
	return nil
}

// Show возвращает маппинг пользователя.
// Нет записи — пустой маппинг с запрошенным user_id.
func (s *MappingService) Show(ctx context.Context, userID string) (*model.Mapping, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.Mapping{UserID: userID, GroupIDs: []string{}, CollectionIDs: []string{}}, nil
		}
		return nil, fmt.Errorf("получение маппинга: %w", err)
	}
	return m, nil
}

// ShowByEmail ищет маппинг по email без учёта регистра. Нет записи — ErrNotFound.
func (s *MappingService) ShowByEmail(ctx context.Context, email string) (*model.Mapping, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email обязателен", ErrValidation)
	}
	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: маппинг для %s", ErrNotFound, email)
		}
		return nil, fmt.Errorf("получение маппинга: %w", err)
	}
	return m, nil
}

// List возвращает все маппинги.
func (s *MappingService) List(ctx context.Context) ([]*model.Mapping, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка маппингов: %w", err)
	}
	return items, nil
}

func validatePlatformUUID(v string) error {
	if v == "" {
		return nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%w: platform_uuid не является UUID: %q", ErrValidation, v)
	}
	return nil
}

// cleanIDs убирает пробелы и пустые идентификаторы, сохраняя порядок.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
