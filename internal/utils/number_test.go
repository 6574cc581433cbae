package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseVN(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"  ", "0"},
		{"5", "5"},
		{"17,5", "17.5"},
		{"1.234,5", "1234.5"},
		{"1.000", "1000"},
		{" 12 ", "12"},
		{"abc", "0"},
	}

	for _, tc := range testCases {
		got := ParseVN(tc.in)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ParseVN(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestFormatVN(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"4", "4"},
		{"17.5", "17,5"},
		{"0.3333333333", "0,333333"},
		{"1234.5", "1234,5"},
	}

	for _, tc := range testCases {
		got := FormatVN(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Errorf("FormatVN(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}

	// Whatever we write must read back unchanged
	d := decimal.RequireFromString("2.75")
	if back := ParseVN(FormatVN(d)); !back.Equal(d) {
		t.Errorf("round trip: got %s, want %s", back, d)
	}
}

func TestFlexDecimal(t *testing.T) {
	var body struct {
		A FlexDecimal `json:"a"`
		B FlexDecimal `json:"b"`
		C FlexDecimal `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 7, "b": "17,5", "c": null}`), &body); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !body.A.Equal(decimal.NewFromInt(7)) {
		t.Errorf("a = %s", body.A)
	}
	if !body.B.Equal(decimal.RequireFromString("17.5")) {
		t.Errorf("b = %s", body.B)
	}
	if !body.C.IsZero() {
		t.Errorf("c = %s", body.C)
	}

	if err := json.Unmarshal([]byte(`{"a": true}`), &body); err == nil {
		t.Error("Expected error for boolean quantity")
	}
}

func TestVNTimestamp(t *testing.T) {
	ts := time.Date(2025, 11, 19, 7, 30, 0, 0, time.UTC)

	got := VNTimestamp(ts)
	if got != "2025-11-19T14:30:00.000+07:00" {
		t.Errorf("VNTimestamp = %s", got)
	}
	if d := VNDate(time.Date(2025, 11, 19, 18, 0, 0, 0, time.UTC)); d != "2025-11-20" {
		t.Errorf("VNDate = %s", d)
	}

	back, err := ParseVNTimestamp(got)
	if err != nil {
		t.Fatalf("ParseVNTimestamp failed: %v", err)
	}
	if !back.Equal(ts) {
		t.Errorf("round trip: got %s, want %s", back, ts)
	}
}
