package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type lineReq struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type orderReq struct {
	Requester string    `json:"requester" validate:"required"`
	Lines     []lineReq `json:"lines" validate:"required,min=1,dive"`
}

func TestDecodeAndValidate(t *testing.T) {
	var ok orderReq
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"requester":"ana","lines":[{"product_id":1,"quantity":"2.5"}]}`))
	require.NoError(t, DecodeAndValidate(req, &ok))
	require.True(t, ok.Lines[0].Quantity.Equal(decimal.RequireFromString("2.5")))

	var bad orderReq
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"requester":"ana","lines":[{"product_id":0,"quantity":"0"}]}`))
	err := DecodeAndValidate(req, &bad)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "product_id")
	require.Contains(t, err.Error(), "quantity")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	require.ErrorIs(t, DecodeAndValidate(req, &bad), ErrValidation)
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("supplier code: %w", ErrDuplicate))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), `"title":"Duplicate"`)

	rr = httptest.NewRecorder()
	RespondError(rr, http.ErrBodyNotAllowed)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
