package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeBOMCost(t *testing.T) {
	products := []Product{
		{Meta: store.Meta{ID: 1}, Description: "Ureia", Cost: d("2.50")},
		{Meta: store.Meta{ID: 2}, Description: "Fosfato", Cost: d("3.00")},
	}

	cases := []struct {
		name string
		bom  []BOMComponent
		want string
	}{
		{"two components", []BOMComponent{{ProductID: 1, Quantity: d("2")}, {ProductID: 2, Quantity: d("1")}}, "8"},
		{"missing component counts zero", []BOMComponent{{ProductID: 1, Quantity: d("4")}, {ProductID: 99, Quantity: d("10")}}, "10"},
		{"empty bom", nil, "0"},
		{"fractional quantities", []BOMComponent{{ProductID: 2, Quantity: d("0.333")}}, "0.999"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeBOMCost(tc.bom, products)
			require.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestRollupMarksMissingComponents(t *testing.T) {
	lines, total := rollupComponents([]BOMComponent{{ProductID: 7, Quantity: d("3")}}, map[int64]Product{})
	require.Len(t, lines, 1)
	require.True(t, lines[0].Missing)
	require.True(t, lines[0].Subtotal.IsZero())
	require.True(t, total.IsZero())
}
