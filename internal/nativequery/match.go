package nativequery

import (
	"strings"

	"github.com/bigkaa/reporting-module/internal/domain/model"
)

// Matches сообщает, относится ли артефакт к ключу.
//
// Совпадение по таблице: key.TableID задан и равен summary.TableID.
// Иначе, если у артефакта нет таблицы (native SQL), ResourceID ищется
// как подстрока текста запроса. Нормализации нет: идентификатор, который
// является подстрокой другого, даст ложное совпадение.
func Matches(summary model.ArtifactSummary, key model.MatchKey) bool {
	if key.TableID != nil && summary.TableID != nil && *key.TableID == *summary.TableID {
		return true
	}
	if summary.TableID == nil && key.ResourceID != "" {
		return strings.Contains(ExtractNative(summary.DatasetQuery), key.ResourceID)
	}
	return false
}
