package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	items := []widget{{Name: "Fertilizante NPK"}, {Name: "Embalagem 25kg"}, {Name: "Ácido Fosfórico"}}
	fields := func(w widget) []string { return []string{w.Name} }

	require.Len(t, Search(items, "", fields), 3)
	require.Len(t, Search(items, "   ", fields), 3)

	got := Search(items, "npk", fields)
	require.Len(t, got, 1)
	require.Equal(t, "Fertilizante NPK", got[0].Name)

	got = Search(items, "ÁCIDO", fields)
	require.Len(t, got, 1)

	require.Empty(t, Search(items, "zzz", fields))
}
