package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextNumber builds the next document number PREFIX-YYYY-NNN for the year of
// now. NNN is one more than the count of existing numbers mentioning that
// year, padded to three digits; counts past 999 keep all their digits.
func NextNumber(prefix string, existing []string, now time.Time) string {
	year := strconv.Itoa(now.Year())
	count := 0
	for _, number := range existing {
		if strings.Contains(number, year) {
			count++
		}
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, year, count+1)
}

// Numbers collects the document numbers of a collection.
func Numbers[T any, P Entity[T]](c *Collection[T, P], number func(T) string) []string {
	out := make([]string, 0, c.Len())
	for _, rec := range c.items {
		out = append(out, number(rec))
	}
	return out
}
