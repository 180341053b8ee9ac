package model

import "time"

// AccessScope — набор коллекций и групп Metabase, доступных пользователю.
// Пустой CollectionIDs допустим: операции поиска сразу возвращают пустой результат.
type AccessScope struct {
	// CollectionIDs — коллекции в порядке обхода
	CollectionIDs []string
	// GroupIDs — группы Metabase для SSO
	GroupIDs []string
	// PlatformUUID — идентификатор пользователя во внешней платформе; пустая строка — не задан
	PlatformUUID string
}

// IsEmpty сообщает, что scope не содержит ни одной коллекции.
func (s AccessScope) IsEmpty() bool {
	return len(s.CollectionIDs) == 0
}

// Contains проверяет, входит ли коллекция в scope.
func (s AccessScope) Contains(collectionID string) bool {
	for _, id := range s.CollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// Identity — вызывающий пользователь, извлечённый из входящего JWT.
type Identity struct {
	// UserID — sub из JWT, ключ маппинга
	UserID string
	// Email — email пользователя (он же логин в Metabase)
	Email string
	// FullName — отображаемое имя, используется для first/last name в SSO
	FullName string
}

// Mapping — запись таблицы reporting_mapping: привязка пользователя к scope.
type Mapping struct {
	// UserID — идентификатор пользователя (sub из Keycloak)
	UserID string `json:"user_id"`
	// PlatformUUID — UUID пользователя во внешней платформе (может быть пустым)
	PlatformUUID string `json:"platform_uuid"`
	// Email — email пользователя
	Email string `json:"email"`
	// GroupIDs — группы Metabase
	GroupIDs []string `json:"group_ids"`
	// CollectionIDs — коллекции Metabase
	CollectionIDs []string `json:"collection_ids"`
	// CreatedAt — время создания записи
	CreatedAt time.Time `json:"created_at"`
	// ModifiedAt — время последнего изменения
	ModifiedAt time.Time `json:"modified_at"`
}

// Scope возвращает scope, заданный маппингом.
func (m *Mapping) Scope() AccessScope {
	return AccessScope{
		CollectionIDs: m.CollectionIDs,
		GroupIDs:      m.GroupIDs,
		PlatformUUID:  m.PlatformUUID,
	}
}
