// Пакет nativequery — извлечение текста native SQL из dataset_query Metabase
// и сопоставление артефактов с локальными ресурсами.
//
// dataset_query бывает двух форм:
//   - legacy: {"native": {"query": "..."}} или {"native": "..."};
//   - staged (MBQL 5): {"stages": [{"native": "..."}, ...]}.
//
// Некорректные и частичные фрагменты не приводят к ошибке: результат — пустая строка.
package nativequery

import "encoding/json"

// ExtractNative возвращает текст native-запроса из сырого dataset_query.
// Для nil, null и невалидного JSON возвращает "".
func ExtractNative(datasetQuery json.RawMessage) string {
	if len(datasetQuery) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(datasetQuery, &v); err != nil {
		return ""
	}
	return ExtractNativeValue(v)
}

// ExtractNativeValue — то же, что ExtractNative, для уже декодированного значения.
func ExtractNativeValue(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	// legacy-поле проверяется первым; битый фрагмент считается отсутствующим
	if q, ok := legacyNative(m["native"]); ok {
		return q
	}

	stages, ok := m["stages"].([]any)
	if !ok {
		return ""
	}
	for _, st := range stages {
		stage, ok := st.(map[string]any)
		if !ok {
			continue
		}
		if q, ok := stage["native"].(string); ok {
			return q
		}
	}
	return ""
}

func legacyNative(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case map[string]any:
		q, ok := n["query"].(string)
		return q, ok
	default:
		return "", false
	}
}
