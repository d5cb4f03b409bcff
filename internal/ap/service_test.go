package ap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sum(titles []PayableTitle) decimal.Decimal {
	total := decimal.Zero
	for _, t := range titles {
		total = total.Add(t.Value)
	}
	return total
}

func TestParsePaymentTerms(t *testing.T) {
	cases := []struct {
		raw  string
		want []int
	}{
		{"30/60/90 dias", []int{30, 60, 90}},
		{"30 dias", []int{30}},
		{"", []int{30}},
		{"   ", []int{30}},
		{"À vista com 5% desconto", []int{0}},
		{"28/56", []int{28, 56}},
		{"45", []int{45}},
		{"30/x/90", []int{30, 0, 90}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			require.Equal(t, tc.want, ParsePaymentTerms(tc.raw).Offsets)
		})
	}
}

func TestSplitInstallmentsThreeWay(t *testing.T) {
	issued := time.Date(2024, 1, 18, 15, 30, 0, 0, time.UTC)
	titles := SplitInstallments(SplitInput{
		OrderID:      1,
		OrderNumber:  "PC-2024-001",
		IssueDate:    issued,
		Total:        d("209500"),
		SupplierID:   1,
		SupplierName: "Fertilizantes Brasil S.A.",
		Terms:        "30/60/90 dias",
	})
	require.Len(t, titles, 3)
	require.True(t, titles[0].Value.Equal(d("69833.33")))
	require.True(t, titles[1].Value.Equal(d("69833.33")))
	require.True(t, titles[2].Value.Equal(d("69833.34")))
	require.True(t, sum(titles).Equal(d("209500")))

	require.Equal(t, issued.AddDate(0, 0, 30), titles[0].DueDate)
	require.Equal(t, issued.AddDate(0, 0, 60), titles[1].DueDate)
	require.Equal(t, issued.AddDate(0, 0, 90), titles[2].DueDate)
	require.Equal(t, "1/3", titles[0].Installment)
	require.Equal(t, "3/3", titles[2].Installment)
	require.Equal(t, "Materials purchase - PC-2024-001", titles[0].Description)
	require.Equal(t, "Installment 2 - 60 days", titles[1].Notes)
	for _, title := range titles {
		require.Equal(t, TitleStatusPending, title.Status)
		require.Equal(t, OriginPurchaseOrder, title.Origin)
		require.Equal(t, int64(1), title.PurchaseOrderID)
	}
}

func TestSplitInstallmentsSingle(t *testing.T) {
	issued := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	titles := SplitInstallments(SplitInput{OrderID: 2, OrderNumber: "PC-2024-002", IssueDate: issued, Total: d("5400"), Terms: "30 dias"})
	require.Len(t, titles, 1)
	require.True(t, titles[0].Value.Equal(d("5400")))
	require.Equal(t, issued.AddDate(0, 0, 30), titles[0].DueDate)

	titles = SplitInstallments(SplitInput{OrderID: 3, IssueDate: issued, Total: d("100"), Terms: "À vista com 5% desconto"})
	require.Len(t, titles, 1)
	require.Equal(t, issued, titles[0].DueDate)
}

func TestSplitInstallmentsAlwaysSumToTotal(t *testing.T) {
	issued := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	totals := []string{"0", "0.01", "0.02", "1", "10", "100.01", "999.99", "1234567.89", "209500"}
	terms := []string{"30", "30/60", "30/60/90 dias", "7/14/21/28/35/42/49"}
	for _, total := range totals {
		for _, term := range terms {
			titles := SplitInstallments(SplitInput{OrderID: 1, IssueDate: issued, Total: d(total), Terms: term})
			require.Len(t, titles, len(ParsePaymentTerms(term).Offsets))
			require.True(t, sum(titles).Equal(d(total)), "total %s terms %s", total, term)
			for _, title := range titles {
				require.True(t, title.Value.Equal(title.Value.Truncate(2)))
			}
		}
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewRepository(store.New()), nil, nil)
}

func TestGenerateMarkPaidAndOverdue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	issued := time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC)

	titles, err := svc.GenerateForOrder(ctx, SplitInput{OrderID: 1, OrderNumber: "PC-2024-001", IssueDate: issued, Total: d("209500"), SupplierID: 1, Terms: "30/60/90 dias"})
	require.NoError(t, err)
	require.Len(t, titles, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{titles[0].ID, titles[1].ID, titles[2].ID})

	_, err = svc.GenerateForOrder(ctx, SplitInput{Total: d("1")})
	require.ErrorIs(t, err, ErrValidation)

	paid, err := svc.MarkPaid(ctx, titles[0].ID, issued.AddDate(0, 0, 29))
	require.NoError(t, err)
	require.Equal(t, TitleStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	_, err = svc.MarkPaid(ctx, titles[0].ID, time.Time{})
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.MarkPaid(ctx, 99, time.Time{})
	require.ErrorIs(t, err, ErrNotFound)

	changed, err := svc.MarkOverdue(ctx, issued.AddDate(0, 0, 75))
	require.NoError(t, err)
	require.Equal(t, 1, changed)
	overdue, err := svc.List(ctx, ListFilter{Status: TitleStatusOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, "2/3", overdue[0].Installment)

	aging, err := svc.Aging(ctx, issued.AddDate(0, 0, 75))
	require.NoError(t, err)
	require.True(t, aging.Bucket30.Equal(d("69833.33")))
	require.True(t, aging.Current.Equal(d("69833.34")))
	require.True(t, aging.Total().Equal(d("139666.67")))

	byOrder, err := svc.ListByOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byOrder, 3)
}

func TestHandlerPayAndAging(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.GenerateForOrder(ctx, SplitInput{OrderID: 4, OrderNumber: "PC-2024-004", IssueDate: time.Now(), Total: d("300"), Terms: "30/60"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/ap", NewHandler(nil, svc).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ap/payables/1/pay", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ap/payables/1/pay", nil))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ap/payables/?order_id=4&status=pending", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"installment":"2/2"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ap/aging?as_of=bad", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
