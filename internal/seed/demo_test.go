package seed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/ap"
	"github.com/odyssey-erp/odyssey-procure/internal/inventory"
	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/suppliers"
	"github.com/odyssey-erp/odyssey-procure/internal/procurement"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

type demo struct {
	services Services
	payables *ap.Service
}

func newDemo() demo {
	st := store.New()
	audit := shared.NewAuditLogger(st, nil)
	inv := inventory.NewService(inventory.NewRepository(st), audit, nil, inventory.ServiceConfig{})
	sup := suppliers.NewService(suppliers.NewRepository(st))
	payables := ap.NewService(ap.NewRepository(st), audit, nil)
	proc := procurement.NewService(procurement.NewRepository(st), inv, sup, payables, shared.NotifierFunc(func(context.Context, shared.Notification) {}), nil)
	proc.SetApprovals(shared.NewApprovalRecorder(st, nil))
	proc.SetAudit(audit)
	return demo{
		services: Services{Store: st, Suppliers: sup, Inventory: inv, Procurement: proc},
		payables: payables,
	}
}

func TestDemoLoadsWorkflowSnapshot(t *testing.T) {
	d := newDemo()
	ctx := context.Background()
	require.NoError(t, Demo(ctx, d.services))

	all, err := d.services.Suppliers.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	products, err := d.services.Inventory.ListProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, products, 8)

	reqs, err := d.services.Procurement.ListRequisitions(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	require.Equal(t, "REQ-2024-001", reqs[0].Number)
	require.Equal(t, procurement.RequisitionInQuotation, reqs[0].Status)
	require.Equal(t, "Maria Santos", reqs[0].Approval.DecidedBy)
	require.Equal(t, procurement.RequisitionPending, reqs[1].Status)
	require.Equal(t, procurement.RequisitionInQuotation, reqs[2].Status)

	quotes, err := d.services.Procurement.ListQuotations(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, procurement.QuotationOrderGenerated, quotes[0].Status)
	require.True(t, quotes[0].TotalValue.Equal(decimal.NewFromInt(209500)))
	require.Equal(t, procurement.QuotationPending, quotes[1].Status)
	require.True(t, quotes[1].TotalValue.Equal(decimal.NewFromInt(5400)))

	orders, err := d.services.Procurement.ListPurchaseOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "PC-2024-001", orders[0].Number)
	require.Equal(t, procurement.OrderSent, orders[0].Status)

	titles, err := d.payables.ListByOrder(ctx, orders[0].ID)
	require.NoError(t, err)
	require.Len(t, titles, 3)
	require.Equal(t, "69833.33", titles[0].Value.StringFixed(2))
	require.Equal(t, "69833.34", titles[2].Value.StringFixed(2))
	require.Equal(t, time.Date(2024, 2, 17, 15, 30, 0, 0, time.UTC), titles[0].DueDate)
}

func TestDemoRefusesNonEmptyStore(t *testing.T) {
	d := newDemo()
	ctx := context.Background()
	require.NoError(t, Demo(ctx, d.services))
	require.ErrorIs(t, Demo(ctx, d.services), ErrNotEmpty)
}

func TestDemoComputesBOMCost(t *testing.T) {
	d := newDemo()
	ctx := context.Background()
	require.NoError(t, Demo(ctx, d.services))

	products, err := d.services.Inventory.ListProducts(ctx, "PA001")
	require.NoError(t, err)
	require.Len(t, products, 1)
	rollup, err := d.services.Inventory.CostRollup(ctx, products[0].ID)
	require.NoError(t, err)
	// 0.435*2800 + 0.109*3200 + 0.333*2400
	require.Equal(t, "2366.00", rollup.Total.StringFixed(2))
	require.Equal(t, "-134.00", rollup.Drift.StringFixed(2))
}
