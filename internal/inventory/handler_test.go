package inventory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestHandlerBOMCostAndLowStock(t *testing.T) {
	svc, _ := newTestService(t)
	_, phosphate, npk := seedProducts(t, svc)
	r := chi.NewRouter()
	r.Route("/inventory", NewHandler(nil, svc).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/inventory/products/%d/bom-cost", npk.ID), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var rollup CostRollup
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rollup))
	require.True(t, rollup.Total.Equal(d("8")))
	require.True(t, rollup.Drift.Equal(d("3")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, fmt.Sprintf("/inventory/products/%d/bom-cost/sync", npk.ID), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var synced Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &synced))
	require.True(t, synced.Cost.Equal(d("8")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/inventory/low-stock", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var low []Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &low))
	require.Len(t, low, 1)
	require.Equal(t, phosphate.ID, low[0].ID)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/inventory/products/999", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/inventory/products", strings.NewReader(`{"code":"","description":"x","unit":"kg"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
