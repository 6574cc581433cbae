// Package locations knows the physical slot layout and its code grammar.
//
//	rack: A-K3D4T2.PL6  zone A|B, warehouse 3, row 4, level 2, pallet 6
//	hall: S-K3.PL12     hall of warehouse 3, pallet 12
package locations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Zones
const (
	ZoneA    = "A"
	ZoneB    = "B"
	ZoneHall = "S"
)

// Layout per warehouse
const (
	Warehouses = 3

	zoneARows    = 7
	zoneALevels  = 5
	zoneAPallets = 8

	zoneBRows      = 7
	zoneBRowsFirst = 6 // warehouse 1 is one row short
	zoneBLevels    = 4
	zoneBPallets   = 1
	hallPallets    = 20
)

// Slot is one pallet place
type Slot struct {
	Warehouse int    `json:"warehouse"`
	Zone      string `json:"zone"`
	Row       int    `json:"row,omitempty"`
	Level     int    `json:"level,omitempty"`
	Pallet    int    `json:"pallet"`
	Code      string `json:"code"`
}

var (
	reRack = regexp.MustCompile(`(?i)^(A|B)-K(\d+)D(\d+)T(\d+)\.PL(\d+)$`)
	reHall = regexp.MustCompile(`(?i)^S-K(\d+)\.PL(\d+)$`)
)

// Format renders the canonical code of s
func Format(s Slot) string {
	if s.Zone == ZoneHall {
		return fmt.Sprintf("S-K%d.PL%d", s.Warehouse, s.Pallet)
	}
	return fmt.Sprintf("%s-K%dD%dT%d.PL%d", s.Zone, s.Warehouse, s.Row, s.Level, s.Pallet)
}

// Parse reads a slot code in any letter case. It checks the grammar only;
// use Valid to check the slot exists.
func Parse(code string) (Slot, error) {
	code = strings.TrimSpace(code)
	if m := reRack.FindStringSubmatch(code); m != nil {
		s := Slot{
			Zone:      strings.ToUpper(m[1]),
			Warehouse: atoi(m[2]),
			Row:       atoi(m[3]),
			Level:     atoi(m[4]),
			Pallet:    atoi(m[5]),
		}
		s.Code = Format(s)
		return s, nil
	}
	if m := reHall.FindStringSubmatch(code); m != nil {
		s := Slot{Zone: ZoneHall, Warehouse: atoi(m[1]), Pallet: atoi(m[2])}
		s.Code = Format(s)
		return s, nil
	}
	return Slot{}, fmt.Errorf("invalid slot code %q", code)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Valid reports whether code names a slot that exists
func Valid(code string) bool {
	s, err := Parse(code)
	if err != nil || s.Warehouse < 1 || s.Warehouse > Warehouses || s.Pallet < 1 {
		return false
	}
	switch s.Zone {
	case ZoneA:
		return between(s.Row, zoneARows) && between(s.Level, zoneALevels) && s.Pallet <= zoneAPallets
	case ZoneB:
		return between(s.Row, bRows(s.Warehouse)) && between(s.Level, zoneBLevels) && s.Pallet <= zoneBPallets
	default:
		return s.Pallet <= hallPallets
	}
}

func between(n, max int) bool { return n >= 1 && n <= max }

func bRows(warehouse int) int {
	if warehouse == 1 {
		return zoneBRowsFirst
	}
	return zoneBRows
}

// ForWarehouse lists every slot of one warehouse: zone A, zone B, then the hall
func ForWarehouse(w int) []Slot {
	var out []Slot
	add := func(s Slot) {
		s.Warehouse = w
		s.Code = Format(s)
		out = append(out, s)
	}
	for d := 1; d <= zoneARows; d++ {
		for t := 1; t <= zoneALevels; t++ {
			for p := 1; p <= zoneAPallets; p++ {
				add(Slot{Zone: ZoneA, Row: d, Level: t, Pallet: p})
			}
		}
	}
	for d := 1; d <= bRows(w); d++ {
		for t := 1; t <= zoneBLevels; t++ {
			for p := 1; p <= zoneBPallets; p++ {
				add(Slot{Zone: ZoneB, Row: d, Level: t, Pallet: p})
			}
		}
	}
	for p := 1; p <= hallPallets; p++ {
		add(Slot{Zone: ZoneHall, Pallet: p})
	}
	return out
}

// All lists the slots of every warehouse
func All() []Slot {
	var out []Slot
	for w := 1; w <= Warehouses; w++ {
		out = append(out, ForWarehouse(w)...)
	}
	return out
}

// Codes lists the codes of slots
func Codes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Code
	}
	return out
}
