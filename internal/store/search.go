package store

import (
	"strings"

	"golang.org/x/text/cases"
)

// Search keeps the items where any of the fields contains term, ignoring
// case. An empty or blank term returns items unchanged.
func Search[T any](items []T, term string, fields func(T) []string) []T {
	term = strings.TrimSpace(term)
	if term == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range fields(item) {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
