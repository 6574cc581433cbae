package locations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	s, err := Parse(" a-k3d4t2.pl6 ")
	require.NoError(t, err)
	assert.Equal(t, Slot{Warehouse: 3, Zone: ZoneA, Row: 4, Level: 2, Pallet: 6, Code: "A-K3D4T2.PL6"}, s)

	s, err = Parse("s-K2.pl12")
	require.NoError(t, err)
	assert.Equal(t, "S-K2.PL12", s.Code)
	assert.Equal(t, ZoneHall, s.Zone)

	for _, bad := range []string{"", "C-K1D1T1.PL1", "A-K1D1.PL1", "S-K1PL1", "LOT-01"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestCounts(t *testing.T) {
	// zone A 7*5*8, zone B rows*4, hall 20
	assert.Len(t, ForWarehouse(1), 280+24+20)
	assert.Len(t, ForWarehouse(2), 280+28+20)
	assert.Len(t, All(), 324+328+328)
}

func TestGeneratedCodesRoundTrip(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range All() {
		require.False(t, seen[s.Code], "duplicate %s", s.Code)
		seen[s.Code] = true

		back, err := Parse(s.Code)
		require.NoError(t, err, s.Code)
		assert.Equal(t, s, back)
		assert.True(t, Valid(s.Code), s.Code)
	}
}

func TestValid(t *testing.T) {
	testCases := []struct {
		code string
		want bool
	}{
		{"A-K1D7T5.PL8", true},
		{"A-K1D8T1.PL1", false},
		{"A-K1D1T6.PL1", false},
		{"A-K1D1T1.PL9", false},
		{"B-K1D7T1.PL1", false},
		{"B-K2D7T1.PL1", true},
		{"B-K2D1T1.PL2", false},
		{"S-K3.PL20", true},
		{"S-K3.PL21", false},
		{"S-K4.PL1", false},
		{"S-K1.PL0", false},
	}
	for _, tc := range testCases {
		if got := Valid(tc.code); got != tc.want {
			t.Errorf("Valid(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
