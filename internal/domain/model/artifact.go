// Пакет model — доменные модели Reporting Module.
// Артефакты Metabase (вопросы, модели, дашборды) декодируются из JSON
// удалённого API и живут только в рамках одного запроса.
package model

import "encoding/json"

// ArtifactKind — тип артефакта Metabase.
type ArtifactKind string

const (
	// KindQuestion — сохранённый вопрос (card с type=question).
	KindQuestion ArtifactKind = "question"
	// KindModel — модель (card с type=model).
	KindModel ArtifactKind = "model"
	// KindDashboard — дашборд.
	KindDashboard ArtifactKind = "dashboard"
)

// ArtifactSummary — краткое описание артефакта из листинга /api/card.
type ArtifactSummary struct {
	// ID — числовой идентификатор card
	ID int64 `json:"id"`
	// EntityID — стабильный идентификатор Metabase (опционально)
	EntityID string `json:"entity_id,omitempty"`
	// Name — название
	Name string `json:"name"`
	// Kind — тип card (поле type)
	Kind ArtifactKind `json:"type"`
	// CollectionID — коллекция, в которой лежит card; пустая строка — корневая
	CollectionID string `json:"collection_id"`
	// TableID — таблица-источник для структурированных запросов; nil для native SQL
	TableID *int64 `json:"table_id,omitempty"`
	// UpdatedAt — время изменения в исходном строковом виде
	UpdatedAt string `json:"updated_at"`
	// DatasetQuery — версионированное представление запроса, не интерпретируется
	DatasetQuery json.RawMessage `json:"-"`
}

// UnmarshalJSON декодирует card из ответа Metabase.
// collection_id приходит числом, строкой или null.
func (s *ArtifactSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64           `json:"id"`
		EntityID     string          `json:"entity_id"`
		Name         string          `json:"name"`
		Type         ArtifactKind    `json:"type"`
		CollectionID flexID          `json:"collection_id"`
		TableID      *int64          `json:"table_id"`
		UpdatedAt    string          `json:"updated_at"`
		DatasetQuery json.RawMessage `json:"dataset_query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ArtifactSummary{
		ID:           raw.ID,
		EntityID:     raw.EntityID,
		Name:         raw.Name,
		Kind:         raw.Type,
		CollectionID: string(raw.CollectionID),
		TableID:      raw.TableID,
		UpdatedAt:    raw.UpdatedAt,
		DatasetQuery: raw.DatasetQuery,
	}
	return nil
}

// ArtifactDetail — полное описание артефакта из /api/card/{id} или /api/dashboard/{id}.
type ArtifactDetail struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Kind        ArtifactKind `json:"type,omitempty"`
	Display     *string      `json:"display,omitempty"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	CreatorID   *int64       `json:"creator_id"`
	// CreatorEmail — email автора; у дашбордов Metabase не возвращает объект creator
	CreatorEmail string `json:"-"`
}

// UnmarshalJSON декодирует детальный ответ Metabase, разворачивая объект creator.
func (d *ArtifactDetail) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          int64        `json:"id"`
		Name        string       `json:"name"`
		Description *string      `json:"description"`
		Type        ArtifactKind `json:"type"`
		Display     *string      `json:"display"`
		CreatedAt   string       `json:"created_at"`
		UpdatedAt   string       `json:"updated_at"`
		CreatorID   *int64       `json:"creator_id"`
		Creator     *struct {
			Email string `json:"email"`
		} `json:"creator"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = ArtifactDetail{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Kind:        raw.Type,
		Display:     raw.Display,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
		CreatorID:   raw.CreatorID,
	}
	if raw.Creator != nil {
		d.CreatorEmail = raw.Creator.Email
	}
	return nil
}

// CollectionItem — элемент листинга /api/collection/{id}/items.
type CollectionItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
	// Text — дублирует Name, используется виджетами выбора
	Text string `json:"text"`
	// LastEditedAt — last-edit-info.timestamp
	LastEditedAt string `json:"last_edited_at"`
}

// UnmarshalJSON извлекает время последнего редактирования из вложенного last-edit-info.
func (c *CollectionItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Model        string `json:"model"`
		LastEditInfo *struct {
			Timestamp string `json:"timestamp"`
		} `json:"last-edit-info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CollectionItem{
		ID:    raw.ID,
		Name:  raw.Name,
		Model: raw.Model,
		Text:  raw.Name,
	}
	if raw.LastEditInfo != nil {
		c.LastEditedAt = raw.LastEditInfo.Timestamp
	}
	return nil
}

// ItemRef — ссылка на элемент коллекции для последующего запроса деталей.
type ItemRef struct {
	ID int64 `json:"id"`
}

// MatchKey — ключ сопоставления артефакта с локальным ресурсом.
// Должно быть задано хотя бы одно поле; пустой ResourceID считается незаданным.
type MatchKey struct {
	TableID    *int64
	ResourceID string
}

// flexID — идентификатор, который Metabase отдаёт числом, строкой или null.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}
