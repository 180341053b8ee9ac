package service

import (
	"cmp"
	"slices"
	"time"
)

// zonelessLayouts — форматы времени без зоны; трактуются как UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp разбирает RFC 3339 (Z или смещение, дробные секунды опциональны).
// Строка без зоны трактуется как UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByKindName сортирует по возрастанию (kind, name) с учётом регистра.
func SortByKindName[T any](items []T, key func(T) (kind, name string)) {
	slices.SortStableFunc(items, func(a, b T) int {
		ak, an := key(a)
		bk, bn := key(b)
		if c := cmp.Compare(ak, bk); c != 0 {
			return c
		}
		return cmp.Compare(an, bn)
	})
}

// SortByRecency сортирует от новых к старым, при равном времени — по имени.
// Элементы с неразбираемым временем идут после всех остальных и упорядочены по имени.
func SortByRecency[T any](items []T, key func(T) (updatedAt, name string)) {
	slices.SortStableFunc(items, func(a, b T) int {
		as, an := key(a)
		bs, bn := key(b)
		at, aok := parseTimestamp(as)
		bt, bok := parseTimestamp(bs)

		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case aok && bok:
			if c := bt.Compare(at); c != 0 {
				return c
			}
		}
		return cmp.Compare(an, bn)
	})
}
