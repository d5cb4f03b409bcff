package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormatter(t *testing.T) {
	f, err := NewMoneyFormatter("pt-BR", "BRL")
	require.NoError(t, err)
	require.Equal(t, "BRL", f.Currency())
	require.Equal(t, "R$ 209.500,00", f.Format(decimal.RequireFromString("209500")))
	require.Equal(t, "R$ 69.833,34", f.Format(decimal.RequireFromString("69833.335")))
	require.Equal(t, "R$ 950,50", f.Format(decimal.RequireFromString("950.5")))
	require.Equal(t, "R$ -1.234,56", f.Format(decimal.RequireFromString("-1234.56")))
	require.Equal(t, "R$ 12.345.678.901.234.567,89", f.Format(decimal.RequireFromString("12345678901234567.89")))

	_, err = NewMoneyFormatter("pt-BR", "XXXX")
	require.Error(t, err)

	var nilFormatter *MoneyFormatter
	require.Equal(t, "10.50", nilFormatter.Format(decimal.RequireFromString("10.5")))
}

func TestMoneyFormatterFollowsLocaleAndMinorUnits(t *testing.T) {
	usd, err := NewMoneyFormatter("en-US", "USD")
	require.NoError(t, err)
	require.Contains(t, usd.Format(decimal.RequireFromString("1234567.891")), "1,234,567.89")

	yen, err := NewMoneyFormatter("en-US", "JPY")
	require.NoError(t, err)
	out := yen.Format(decimal.RequireFromString("12345.6"))
	require.Contains(t, out, "12,346")
	require.NotContains(t, out, ".")
}

func TestGroupDigits(t *testing.T) {
	require.Equal(t, "1", groupDigits("1", "."))
	require.Equal(t, "123", groupDigits("123", "."))
	require.Equal(t, "1.234", groupDigits("1234", "."))
	require.Equal(t, "123.456", groupDigits("123456", "."))
	require.Equal(t, "1234", groupDigits("1234", ""))
}
