package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New()
	audit := shared.NewAuditLogger(st, nil)
	return NewService(NewRepository(st), audit, nil, ServiceConfig{}), st
}

func seedProducts(t *testing.T, svc *Service) (Product, Product, Product) {
	t.Helper()
	ctx := context.Background()
	urea, err := svc.CreateProduct(ctx, ProductInput{Code: "MP-001", Description: "Ureia", Type: ProductTypeRawMaterial, Unit: "kg", Cost: d("2.50"), Stock: d("100"), MinStock: d("50")})
	require.NoError(t, err)
	phosphate, err := svc.CreateProduct(ctx, ProductInput{Code: "MP-002", Description: "Fosfato", Type: ProductTypeRawMaterial, Unit: "kg", Cost: d("3.00"), Stock: d("200"), MinStock: d("300")})
	require.NoError(t, err)
	npk, err := svc.CreateProduct(ctx, ProductInput{
		Code: "PA-001", Description: "NPK 10-10-10", Type: ProductTypeFinished, Unit: "kg", Cost: d("5"),
		BOM: []BOMComponent{{ProductID: urea.ID, Quantity: d("2")}, {ProductID: phosphate.ID, Quantity: d("1")}},
	})
	require.NoError(t, err)
	return urea, phosphate, npk
}

func TestPostInboundIncrementsStock(t *testing.T) {
	svc, _ := newTestService(t)
	urea, phosphate, _ := seedProducts(t, svc)
	ctx := context.Background()

	movements, err := svc.PostInbound(ctx, InboundInput{
		RefModule: "purchase_order",
		RefID:     "PC-2024-001",
		Lines: []InboundLine{
			{ProductID: urea.ID, Qty: d("50"), UnitCost: d("2.75")},
			{ProductID: phosphate.ID, Qty: d("30"), UnitCost: d("2.35")},
			{ProductID: 404, Qty: d("1")},
		},
	})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	got, err := svc.GetProduct(ctx, urea.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentStock.Equal(d("150")))
	got, err = svc.GetProduct(ctx, phosphate.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentStock.Equal(d("230")))

	card, err := svc.GetStockCard(ctx, urea.ID)
	require.NoError(t, err)
	require.Len(t, card, 1)
	require.Equal(t, TransactionTypeIn, card[0].Type)
	require.True(t, card[0].BalanceQty.Equal(d("150")))
	require.Equal(t, "PC-2024-001", card[0].RefID)

	_, err = svc.PostInbound(ctx, InboundInput{Lines: []InboundLine{{ProductID: urea.ID, Qty: d("0")}}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCostRollupAndSync(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, npk := seedProducts(t, svc)
	ctx := context.Background()

	rollup, err := svc.CostRollup(ctx, npk.ID)
	require.NoError(t, err)
	require.True(t, rollup.Total.Equal(d("8")))
	require.True(t, rollup.Drift.Equal(d("3")))
	require.Len(t, rollup.Components, 2)

	synced, err := svc.SyncBOMCost(ctx, npk.ID)
	require.NoError(t, err)
	require.True(t, synced.Cost.Equal(d("8")))
	require.Equal(t, int64(2), synced.Version)

	_, err = svc.SyncBOMCost(ctx, 1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPostAdjustmentRejectsNegativeStock(t *testing.T) {
	svc, _ := newTestService(t)
	urea, _, _ := seedProducts(t, svc)
	ctx := context.Background()

	_, err := svc.PostAdjustment(ctx, AdjustmentInput{ProductID: urea.ID, Qty: d("-150")})
	require.ErrorIs(t, err, ErrNegativeStock)

	movement, err := svc.PostAdjustment(ctx, AdjustmentInput{ProductID: urea.ID, Qty: d("-40"), Note: "perda"})
	require.NoError(t, err)
	require.True(t, movement.BalanceQty.Equal(d("60")))

	card, err := svc.GetStockCard(ctx, urea.ID)
	require.NoError(t, err)
	require.Len(t, card, 1)
}

func TestLowStockAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	_, phosphate, _ := seedProducts(t, svc)
	ctx := context.Background()

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, phosphate.ID, low[0].ID)

	found, err := svc.ListProducts(ctx, "npk")
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = svc.CreateProduct(ctx, ProductInput{Code: "MP-001", Description: "dup"})
	require.ErrorIs(t, err, ErrValidation)
}
