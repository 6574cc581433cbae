package conversion

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func shrimp() *models.Product {
	return &models.Product{
		Code:               "P001",
		UOMSmall:           "cái",
		UOMMedium:          "thùng",
		UOMLarge:           "pallet",
		RatioSmallToMedium: d("12"),
		RatioMediumToLarge: d("40"),
	}
}

func TestNormalizeUnit(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"  Thùng ", "thung"},
		{"CÁI", "cai"},
		{"đôi", "doi"},
		{"Đôi", "doi"},
		{"kg", "kg"},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := NormalizeUnit(tc.in); got != tc.want {
			t.Errorf("NormalizeUnit(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRatioToSmall(t *testing.T) {
	p := shrimp()
	assert.True(t, RatioToSmall(p, "cai").Equal(d("1")))
	assert.True(t, RatioToSmall(p, "THÙNG").Equal(d("12")))
	assert.True(t, RatioToSmall(p, "pallet").Equal(d("480")))
	assert.True(t, RatioToSmall(p, "hộp").IsZero())
	assert.True(t, RatioToSmall(nil, "cái").IsZero())

	// An empty tier name never matches an empty unit
	p.UOMLarge = ""
	assert.True(t, RatioToSmall(p, "").IsZero())
}

func TestScenarioSevenCaiFromCases(t *testing.T) {
	res, err := Check(d("5"), "thùng", d("7"), "cái", shrimp())
	require.NoError(t, err)

	assert.True(t, res.TargetRatio.Equal(d("1")))
	assert.True(t, res.CurrentRatio.Equal(d("12")))
	assert.True(t, res.Consumed.Equal(d("1")), "consumed = %s", res.Consumed)
	assert.True(t, res.Remainder.Equal(d("5")), "remainder = %s", res.Remainder)
	assert.Equal(t, "cái", res.RemainderUnit)
	assert.True(t, res.IsValid)
}

func TestScenarioTwelveCaiFromCases(t *testing.T) {
	res, err := Check(d("5"), "thùng", d("12"), "cái", shrimp())
	require.NoError(t, err)
	assert.True(t, res.Consumed.Equal(d("1")))
	assert.True(t, res.Remainder.IsZero())
}

func TestScenarioInsufficientStock(t *testing.T) {
	_, err := Check(d("5"), "thùng", d("6"), "thùng", shrimp())
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, e.Code)
	assert.Equal(t, apperr.KindBusinessRule, e.Kind)
	assert.Equal(t, "6", e.Details["requested"])
	assert.Equal(t, "5", e.Details["available"])
}

func TestInsufficiencyBoundary(t *testing.T) {
	res, err := Compute(d("5"), "thùng", d("60"), "cái", shrimp())
	require.NoError(t, err)
	assert.True(t, res.IsValid, "consuming exactly the line is allowed")

	res, err = Compute(d("5"), "thùng", d("60.0001"), "cái", shrimp())
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	res, err = Compute(d("5"), "thùng", d("5.000001"), "thùng", shrimp())
	require.NoError(t, err)
	assert.False(t, res.IsValid)
}

func TestSameUnitIdentity(t *testing.T) {
	for _, unit := range []string{"Thùng", "thung", " THÙNG ", ""} {
		res, err := Compute(d("5"), "thùng", d("2.5"), unit, nil)
		require.NoError(t, err, unit)
		assert.True(t, res.SameUnit)
		assert.True(t, res.Consumed.Equal(d("2.5")))
		assert.True(t, res.Remainder.IsZero())
	}
}

func TestRejectsBadInput(t *testing.T) {
	_, err := Compute(d("5"), "thùng", d("0"), "cái", shrimp())
	assert.Equal(t, CodeInvalidQuantity, apperr.CodeOf(err, ""))

	_, err = Compute(d("5"), "thùng", d("-1"), "cái", shrimp())
	assert.Equal(t, CodeInvalidQuantity, apperr.CodeOf(err, ""))

	_, err = Compute(d("5"), "thùng", d("1"), "hộp", shrimp())
	assert.Equal(t, CodeUnsupportedUnit, apperr.CodeOf(err, ""))

	_, err = Compute(d("5"), "thùng", d("1"), "cái", nil)
	assert.Equal(t, CodeUnsupportedUnit, apperr.CodeOf(err, ""))
}

// Every tier pair, random quantities: never under-consume and the remainder
// accounts for exactly what was over-consumed
func TestConservation(t *testing.T) {
	p := shrimp()
	units := Units(p)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		from := units[rng.Intn(len(units))]
		to := units[rng.Intn(len(units))]
		exportQty := decimal.NewFromInt(int64(rng.Intn(2000) + 1)).Div(decimal.NewFromInt(4))
		current := decimal.NewFromInt(int64(rng.Intn(50) + 1))

		res, err := Compute(current, from, exportQty, to, p)
		require.NoError(t, err)

		requested := exportQty.Mul(res.TargetRatio)
		taken := res.Consumed.Mul(res.CurrentRatio)
		assert.True(t, taken.GreaterThanOrEqual(requested), "%s %s from %s: under-consumed", exportQty, to, from)

		diff := taken.Sub(requested).Sub(res.Remainder.Mul(res.TargetRatio)).Abs()
		assert.True(t, diff.LessThan(d("0.000001")), "%s %s from %s: diff %s", exportQty, to, from, diff)
		assert.False(t, res.Remainder.IsNegative())
	}
}
