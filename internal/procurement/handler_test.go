package procurement

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

func newTestRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	h := NewHandler(nil, f.svc, shared.NewIdempotencyStore(client, time.Hour))
	r := chi.NewRouter()
	r.Route("/procurement", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerRequisitionFlow(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)

	body := fmt.Sprintf(`{"requester":"João Silva","department":"Produção","priority":"high","lines":[{"product_id":%d,"quantity":"50","unit":"kg"}]}`, f.urea.ID)
	rec := do(t, router, http.MethodPost, "/procurement/requisitions/", body, shared.IdempotencyHeader, "req-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Requisition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "REQ-2024-001", created.Number)

	rec = do(t, router, http.MethodPost, "/procurement/requisitions/", body, shared.IdempotencyHeader, "req-1")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPost, "/procurement/requisitions/", `{"requester":"x","department":"y","lines":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/procurement/requisitions/%d/approve", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, fmt.Sprintf("/procurement/requisitions/%d/approve", created.ID), "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/procurement/requisitions/%d/approvals", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []shared.ApprovalLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)

	rec = do(t, router, http.MethodGet, "/procurement/requisitions/?q=PRODU", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []RequisitionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, "Ureia", views[0].Lines[0].Product)

	rec = do(t, router, http.MethodGet, "/procurement/requisitions/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodGet, "/procurement/requisitions/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGuardsReturnConflict(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	pending := f.requisition(t)

	body := fmt.Sprintf(`{"requisition_id":%d,"selected_supplier_id":%d,"offers":[{"supplier_id":%d,"freight":"0","lines":[{"product_id":%d,"quantity":"1","unit_price":"10"}]}]}`,
		pending.ID, f.supplier.ID, f.supplier.ID, f.urea.ID)
	rec := do(t, router, http.MethodPost, "/procurement/quotations/", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "No Eligible Document")

	rec = do(t, router, http.MethodPost, "/procurement/orders/", `{"quotation_id":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	router := newTestRouter(t, f)
	q := f.approvedQuotation(t)

	rec := do(t, router, http.MethodPost, "/procurement/orders/", fmt.Sprintf(`{"quotation_id":%d}`, q.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreatedOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Payables, 3)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/procurement/orders/%d/receive", created.Order.ID), `{"notes":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/procurement/orders/%d", created.Order.ID), "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/procurement/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.True(t, stats.OrdersTotal.Equal(d("209500")))

	rec = do(t, router, http.MethodGet, "/procurement/export/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), ExportFilename(SectionOrders))
	require.NotZero(t, rec.Body.Len())

	rec = do(t, router, http.MethodGet, "/procurement/export/payroll", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
