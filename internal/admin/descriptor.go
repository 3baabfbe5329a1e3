package admin

import (
	"clinicadmin/pkg/domain"
	"strings"
)

// Column is one rendered table column.
type Column[T domain.Record] struct {
	Header string
	Value  func(rec T, aux Lookup) string
}

// Descriptor configures the generic View for one entity.
type Descriptor[T domain.Record] struct {
	Entity domain.EntityType
	// Title is the screen heading, Label the singular used in notifications.
	Title string
	Label string
	// Search returns the fields matched by the search box, including any
	// resolved auxiliary label.
	Search  func(rec T, aux Lookup) []string
	Columns []Column[T]
	// UniqueName enables the local duplicate-name check when non-nil.
	UniqueName func(rec T) string
	// Auxiliary names the lookup collection, empty when there is none.
	Auxiliary domain.EntityType
}

// Filter keeps items whose search fields contain query, ignoring case.
// An empty query returns items unchanged; whitespace is matched literally.
func (d Descriptor[T]) Filter(items []T, aux Lookup, query string) []T {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if d.Search == nil {
			continue
		}
		haystack := strings.ToLower(strings.Join(d.Search(item, aux), " "))
		if strings.Contains(haystack, q) {
			out = append(out, item)
		}
	}
	return out
}

// Reverse returns a reversed copy of items.
func Reverse[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}
