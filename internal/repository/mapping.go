package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/reporting-module/internal/domain/model"
)

// MappingRepository — CRUD таблицы reporting_mapping.
type MappingRepository interface {
	// Create сохраняет новый маппинг. Дубликат user_id — ErrConflict.
	Create(ctx context.Context, m *model.Mapping) error
	// GetByUserID возвращает маппинг пользователя или ErrNotFound.
	GetByUserID(ctx context.Context, userID string) (*model.Mapping, error)
	// GetByEmail ищет маппинг по email без учёта регистра или возвращает ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*model.Mapping, error)
	// Update перезаписывает маппинг. Нет записи — ErrNotFound.
	Update(ctx context.Context, m *model.Mapping) error
	// Delete удаляет маппинг. Нет записи — ErrNotFound.
	Delete(ctx context.Context, userID string) error
	// List возвращает все маппинги, упорядоченные по user_id.
	List(ctx context.Context) ([]*model.Mapping, error)
}

type mappingRepo struct {
	db DBTX
}

// NewMappingRepository создаёт репозиторий маппингов.
func NewMappingRepository(db DBTX) MappingRepository {
	return &mappingRepo{db: db}
}

const mappingColumns = `user_id, platform_uuid, email, group_ids, collection_ids, created_at, modified_at`

func (r *mappingRepo) Create(ctx context.Context, m *model.Mapping) error {
	query := `
		INSERT INTO reporting_mapping (user_id, platform_uuid, email, group_ids, collection_ids)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, modified_at`

	err := r.db.QueryRow(ctx, query,
		m.UserID, m.PlatformUUID, m.Email, nonNil(m.GroupIDs), nonNil(m.CollectionIDs),
	).Scan(&m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания маппинга: %w", err)
	}
	return nil
}

func (r *mappingRepo) GetByUserID(ctx context.Context, userID string) (*model.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM reporting_mapping WHERE user_id = $1`, mappingColumns)
	return r.getOne(ctx, query, userID)
}

func (r *mappingRepo) GetByEmail(ctx context.Context, email string) (*model.Mapping, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reporting_mapping
		WHERE lower(email) = lower($1)
		ORDER BY user_id
		LIMIT 1`, mappingColumns)
	return r.getOne(ctx, query, email)
}

func (r *mappingRepo) getOne(ctx context.Context, query string, arg string) (*model.Mapping, error) {
	m, err := scanMapping(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения маппинга: %w", err)
	}
	return m, nil
}

func (r *mappingRepo) Update(ctx context.Context, m *model.Mapping) error {
	query := `
		UPDATE reporting_mapping SET
			platform_uuid = $2,
			email = $3,
			group_ids = $4,
			collection_ids = $5,
			modified_at = now()
		WHERE user_id = $1
		RETURNING created_at, modified_at`

	err := r.db.QueryRow(ctx, query,
		m.UserID, m.PlatformUUID, m.Email, nonNil(m.GroupIDs), nonNil(m.CollectionIDs),
	).Scan(&m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления маппинга: %w", err)
	}
	return nil
}

func (r *mappingRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reporting_mapping WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления маппинга: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mappingRepo) List(ctx context.Context) ([]*model.Mapping, error) {
	query := fmt.Sprintf(`SELECT %s FROM reporting_mapping ORDER BY user_id`, mappingColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка маппингов: %w", err)
	}
	defer rows.Close()

	result := []*model.Mapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования маппинга: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanMapping(row pgx.Row) (*model.Mapping, error) {
	m := &model.Mapping{}
	err := row.Scan(
		&m.UserID, &m.PlatformUUID, &m.Email, &m.GroupIDs, &m.CollectionIDs,
		&m.CreatedAt, &m.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// nonNil заменяет nil на пустой срез: колонки TEXT[] объявлены NOT NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
