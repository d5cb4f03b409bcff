package ap

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DefaultPaymentTerms applies when a supplier has no terms on file.
const DefaultPaymentTerms = "30 dias"

// minorUnits is the number of decimal places kept on installment values.
const minorUnits = 2

// PaymentTerms is the parsed form of a supplier terms string.
type PaymentTerms struct {
	Raw     string
	Offsets []int
}

// Installments reports how many titles the terms produce.
func (p PaymentTerms) Installments() int { return len(p.Offsets) }

// ParsePaymentTerms reads strings such as "30/60/90 dias" or "30 dias".
// Terms containing "/" yield one offset per segment. Anything else yields a
// single offset taken from its leading integer, or 0 when there is none
// ("À vista com 5% desconto" is due immediately). Blank terms fall back to
// DefaultPaymentTerms.
func ParsePaymentTerms(raw string) PaymentTerms {
	terms := strings.TrimSpace(raw)
	if terms == "" {
		terms = DefaultPaymentTerms
	}
	if strings.Contains(terms, "/") {
		parts := strings.Split(terms, "/")
		offsets := make([]int, 0, len(parts))
		for _, part := range parts {
			offsets = append(offsets, leadingInt(part))
		}
		return PaymentTerms{Raw: terms, Offsets: offsets}
	}
	return PaymentTerms{Raw: terms, Offsets: []int{leadingInt(terms)}}
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// SplitInstallments produces one pending title per offset of the supplier
// terms. Every installment but the last carries total/N truncated to cents;
// the last carries the remainder, so the values always sum to total.
func SplitInstallments(in SplitInput) []PayableTitle {
	terms := ParsePaymentTerms(in.Terms)
	n := terms.Installments()
	count := decimal.NewFromInt(int64(n))
	per := in.Total.Div(count).Truncate(minorUnits)
	titles := make([]PayableTitle, 0, n)
	for i, days := range terms.Offsets {
		value := per
		if i == n-1 {
			value = in.Total.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))
		}
		titles = append(titles, PayableTitle{
			Description:     fmt.Sprintf("Materials purchase - %s", in.OrderNumber),
			Origin:          OriginPurchaseOrder,
			PurchaseOrderID: in.OrderID,
			OrderNumber:     in.OrderNumber,
			SupplierID:      in.SupplierID,
			SupplierName:    in.SupplierName,
			Value:           value,
			IssueDate:       in.IssueDate,
			DueDate:         in.IssueDate.AddDate(0, 0, days),
			Status:          TitleStatusPending,
			Installment:     fmt.Sprintf("%d/%d", i+1, n),
			Notes:           fmt.Sprintf("Installment %d - %d days", i+1, days),
		})
	}
	return titles
}
