// Package conversion does the unit arithmetic behind partial exports.
//
// Products carry a three-tier hierarchy: small, medium (RatioSmallToMedium
// small units each) and large (RatioMediumToLarge medium units each). Taking
// an amount in one unit out of a line held in another consumes a whole number
// of the line's units, rounded up, and hands the difference back as a
// remainder in the export unit.
package conversion

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/models"
)

// Error codes
const (
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeUnsupportedUnit   = "UNSUPPORTED_UNIT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// Result describes what one export does to one line
type Result struct {
	Consumed      decimal.Decimal `json:"consumed"`      // taken from the line, in the line's unit
	Remainder     decimal.Decimal `json:"remainder"`     // handed back, in RemainderUnit
	RemainderUnit string          `json:"remainderUnit"` // the export unit
	IsValid       bool            `json:"isValid"`       // Consumed fits in the line
	SameUnit      bool            `json:"sameUnit"`
	CurrentRatio  decimal.Decimal `json:"currentRatio"` // small units per line unit
	TargetRatio   decimal.Decimal `json:"targetRatio"`  // small units per export unit
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeUnit folds a unit name for comparison: "  Thùng " and "thung" match
func NormalizeUnit(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	// đ is a letter of its own, not d plus a mark
	return strings.ReplaceAll(out, "đ", "d")
}

// RatioToSmall returns how many small units one unit is worth for product, or
// zero when the unit is not one of the product's tiers
func RatioToSmall(product *models.Product, unit string) decimal.Decimal {
	if product == nil {
		return decimal.Zero
	}
	u := NormalizeUnit(unit)
	if u == "" {
		return decimal.Zero
	}
	switch u {
	case NormalizeUnit(product.UOMSmall):
		return decimal.NewFromInt(1)
	case NormalizeUnit(product.UOMMedium):
		return product.RatioSmallToMedium
	case NormalizeUnit(product.UOMLarge):
		return product.RatioMediumToLarge.Mul(product.RatioSmallToMedium)
	}
	return decimal.Zero
}

// Units lists a product's non-empty tiers, small first
func Units(product *models.Product) []string {
	if product == nil {
		return nil
	}
	var out []string
	for _, u := range []string{product.UOMSmall, product.UOMMedium, product.UOMLarge} {
		if strings.TrimSpace(u) != "" {
			out = append(out, u)
		}
	}
	return out
}

// Compute works out an export of exportQty exportUnit from a line holding
// currentQty currentUnit. An empty exportUnit means the line's unit.
// The product is only needed when the units differ.
func Compute(currentQty decimal.Decimal, currentUnit string, exportQty decimal.Decimal, exportUnit string, product *models.Product) (Result, error) {
	if strings.TrimSpace(exportUnit) == "" {
		exportUnit = currentUnit
	}
	if !exportQty.IsPositive() {
		return Result{}, apperr.Validation(CodeInvalidQuantity, "export quantity must be greater than zero").
			With("quantity", exportQty.String())
	}

	if NormalizeUnit(exportUnit) == NormalizeUnit(currentUnit) {
		one := decimal.NewFromInt(1)
		return Result{
			Consumed:      exportQty,
			Remainder:     decimal.Zero,
			RemainderUnit: exportUnit,
			IsValid:       exportQty.LessThanOrEqual(currentQty),
			SameUnit:      true,
			CurrentRatio:  one,
			TargetRatio:   one,
		}, nil
	}

	currentRatio := RatioToSmall(product, currentUnit)
	targetRatio := RatioToSmall(product, exportUnit)
	if !currentRatio.IsPositive() || !targetRatio.IsPositive() {
		err := apperr.New(apperr.KindBusinessRule, CodeUnsupportedUnit, "unit cannot be converted for this product").
			With("fromUnit", currentUnit).
			With("toUnit", exportUnit)
		if product != nil {
			err.With("productCode", product.Code).With("units", Units(product))
		}
		return Result{}, err
	}

	splitInSmall := exportQty.Mul(targetRatio)
	consumed := splitInSmall.Div(currentRatio).Ceil()
	remainderInSmall := consumed.Mul(currentRatio).Sub(splitInSmall)
	remainder := remainderInSmall.Div(targetRatio)

	return Result{
		Consumed:      consumed,
		Remainder:     remainder,
		RemainderUnit: exportUnit,
		IsValid:       consumed.LessThanOrEqual(currentQty),
		CurrentRatio:  currentRatio,
		TargetRatio:   targetRatio,
	}, nil
}

// Check is Compute plus a stock check: an export that does not fit in the
// line fails with INSUFFICIENT_STOCK, quantities in the line's unit
func Check(currentQty decimal.Decimal, currentUnit string, exportQty decimal.Decimal, exportUnit string, product *models.Product) (Result, error) {
	res, err := Compute(currentQty, currentUnit, exportQty, exportUnit, product)
	if err != nil {
		return res, err
	}
	if !res.IsValid {
		return res, apperr.New(apperr.KindBusinessRule, CodeInsufficientStock, "not enough stock on the line").
			With("requested", res.Consumed.String()).
			With("available", currentQty.String()).
			With("unit", currentUnit)
	}
	return res, nil
}
