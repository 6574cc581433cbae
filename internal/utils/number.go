package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the precision quantities are rounded to when written back
const QuantityPlaces = 6

// ParseVN parses a Vietnamese-formatted number ("17,5", "1.234,5").
// Dots are thousand separators, the comma is the decimal separator.
// Empty or malformed input yields zero, matching how blank sheet cells read.
func ParseVN(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	clean := strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatVN renders a quantity with a comma decimal separator and no grouping
func FormatVN(d decimal.Decimal) string {
	return strings.Replace(d.Round(QuantityPlaces).String(), ".", ",", 1)
}

// FlexDecimal accepts a JSON number or a Vietnamese-formatted string
type FlexDecimal struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		f.Decimal = ParseVN(strings.Trim(string(data), `"`))
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	f.Decimal = d
	return nil
}

// MarshalJSON writes the value as a bare JSON number
func (f FlexDecimal) MarshalJSON() ([]byte, error) {
	return []byte(f.Decimal.String()), nil
}
