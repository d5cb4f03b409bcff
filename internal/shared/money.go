package shared

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders amounts for display in a fixed locale and currency.
// Digits come from the exact decimal value; the locale supplies the symbol
// and the separators.
type MoneyFormatter struct {
	unit    currency.Unit
	symbol  string
	group   string
	decimal string
	scale   int32
}

// NewMoneyFormatter builds a formatter such as ("pt-BR", "BRL").
func NewMoneyFormatter(locale, code string) (*MoneyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("shared: parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("shared: parse currency %q: %w", code, err)
	}
	printer := message.NewPrinter(tag)
	group, dec := separators(printer.Sprint(number.Decimal(1234567.5, number.Scale(1))))
	scale, _ := currency.Standard.Rounding(unit)
	return &MoneyFormatter{
		unit:    unit,
		symbol:  printer.Sprint(currency.Symbol(unit)),
		group:   group,
		decimal: dec,
		scale:   int32(scale),
	}, nil
}

// separators reads the grouping and decimal marks from a locale's rendering
// of 1234567.5. Locales that do not group return an empty group mark.
func separators(sample string) (group, dec string) {
	runes := []rune(sample)
	dec = "."
	if n := len(runes); n >= 2 && !unicode.IsDigit(runes[n-2]) {
		dec = string(runes[n-2])
	}
	for _, r := range runes {
		if !unicode.IsDigit(r) {
			group = string(r)
			break
		}
	}
	if group == dec {
		group = ""
	}
	return group, dec
}

// Format renders amount with the currency symbol, rounded to the currency's
// minor units.
func (f *MoneyFormatter) Format(amount decimal.Decimal) string {
	if f == nil {
		return amount.StringFixed(2)
	}
	fixed := amount.StringFixed(f.scale)
	sign := ""
	if rest, ok := strings.CutPrefix(fixed, "-"); ok {
		sign, fixed = "-", rest
	}
	units, minor, hasMinor := strings.Cut(fixed, ".")
	var b strings.Builder
	b.WriteString(f.symbol)
	b.WriteString(" ")
	b.WriteString(sign)
	b.WriteString(groupDigits(units, f.group))
	if hasMinor {
		b.WriteString(f.decimal)
		b.WriteString(minor)
	}
	return b.String()
}

func groupDigits(digits, mark string) string {
	if mark == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(mark)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Currency returns the ISO code of the formatter.
func (f *MoneyFormatter) Currency() string {
	if f == nil {
		return ""
	}
	return f.unit.String()
}
