package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field parsers for the locale-specific text formats the source spreadsheets
// carry. Malformed input is never an error: the field is simply absent.

var blankValues = map[string]bool{
	"":         true,
	"-":        true,
	"$-":       true,
	"$ -":      true,
	"?":        true,
	"n/a":      true,
	"variable": true,
}

func isBlank(s string) bool {
	return blankValues[strings.ToLower(strings.TrimSpace(s))]
}

// ParseCurrency handles formats like "$1,234.56" and "($1,234.56)"
// (parentheses mean negative).
func ParseCurrency(value string) *decimal.Decimal {
	value = strings.TrimSpace(value)
	if isBlank(value) {
		return nil
	}

	negative := strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")")
	if negative {
		value = value[1 : len(value)-1]
	}

	value = strings.NewReplacer("$", "", ",", "").Replace(value)
	value = strings.TrimSpace(value)
	if value == "" || value == "-" {
		return nil
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil
	}
	if negative {
		d = d.Neg()
	}
	return &d
}

// ParsePercent handles "29.00%" -> 29.00, with parentheses or a leading minus
// for negatives.
func ParsePercent(value string) *decimal.Decimal {
	value = strings.TrimSpace(value)
	if isBlank(value) {
		return nil
	}

	value = strings.TrimSpace(strings.TrimSuffix(value, "%"))

	negative := strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")")
	if negative {
		value = value[1 : len(value)-1]
	}
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil
	}
	if negative {
		d = d.Neg()
	}
	return &d
}

// ParseInt handles comma separators and range notation: "3500-8200" resolves
// to the minimum, the baseline operational constraint for depth ranges.
// Fractional values are truncated.
func ParseInt(value string) *int {
	value = strings.TrimSpace(value)
	if isBlank(value) {
		return nil
	}

	if strings.Contains(value, "-") && !strings.HasPrefix(value, "-") {
		parts := strings.SplitN(value, "-", 2)
		value = parts[0]
	}

	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

var dateLayouts = []string{
	"2-Jan-06",   // 1-Mar-19
	"2-Jan-2006", // 1-Mar-2019
	"01/02/2006", // 03/01/2019
	"2006-01-02", // 2019-03-01
}

// ParseDate tries the day-month-year textual layouts seen in the sources.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if isBlank(value) {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
