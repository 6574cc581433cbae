package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/locations"
	"github.com/xelth-com/lotscan/internal/models"
)

// demoProducts covers every tier layout: three tiers, two tiers, a single unit
var demoProducts = []ledger.Row{
	{"P001", "Tôm sú đông lạnh", "Hải sản", "cái", "thùng", "", "12"},
	{"P002", "Mực ống", "Hải sản", "kg", "", "", ""},
	{"P003", "Cá basa phi lê", "Hải sản", "gói", "hộp", "thùng", "10", "4"},
	{"P004", "Bạch tuộc", "Hải sản", "kg", "thùng", "", "20"},
}

type demoLine struct {
	product, name string
	qty, unit     string
}

var demoLots = []struct {
	code  string
	slot  string
	lines []demoLine
}{
	{"LOT-0001", "A-K1D1T1.PL1", []demoLine{{"P001", "Tôm sú đông lạnh", "5", "thùng"}}},
	{"LOT-0002", "A-K1D1T1.PL2", []demoLine{{"P003", "Cá basa phi lê", "3", "thùng"}, {"P003", "Cá basa phi lê", "2", "hộp"}}},
	{"LOT-0003", "", []demoLine{{"P002", "Mực ống", "17,5", "kg"}}},
	{"LOT-0004", "S-K1.PL3", []demoLine{{"P004", "Bạch tuộc", "2", "thùng"}, {"P002", "Mực ống", "4", "kg"}}},
	{"LOT-0005", "", []demoLine{{"P001", "Tôm sú đông lạnh", "30", "cái"}}},
}

func main() {
	fmt.Println("🌱 Lot Scanner Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if cfg.Ledger.Backend == config.BackendMemory {
		log.Fatalf("❌ LEDGER_BACKEND=memory keeps nothing; seed the sheets or postgres ledger")
	}

	ctx := context.Background()
	store, closeStore, err := ledger.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open ledger: %v", err)
	}
	defer closeStore()
	fmt.Printf("✅ Connected to %s ledger\n\n", cfg.Ledger.Backend)

	existing, err := store.ReadRows(ctx, ledger.LotTable)
	if err != nil {
		log.Fatalf("❌ Failed to read lots: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("⚠️  Ledger already has %d lot lines. Seed anyway? (y/N): ", len(existing))
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
			fmt.Println("❌ Aborted. Ledger not modified.")
			return
		}
	}

	// 1. Products
	fmt.Println("📦 Creating products...")
	if err := store.AppendRows(ctx, ledger.ProductTable, demoProducts); err != nil {
		log.Fatalf("❌ Failed to create products: %v", err)
	}
	fmt.Printf("   ✓ %d products\n", len(demoProducts))

	// 2. Lots and their slots
	fmt.Println("📍 Creating lots...")
	var lotRows, posRows []ledger.Row
	for _, lot := range demoLots {
		if lot.slot != "" && !locations.Valid(lot.slot) {
			log.Fatalf("❌ Demo slot %s does not exist", lot.slot)
		}
		for _, l := range lot.lines {
			line := models.LotLine{
				LotCode:     lot.code,
				ProductCode: l.product,
				ProductName: l.name,
				PeelDate:    "2025-11-01",
				PackDate:    "2025-11-03",
				QC:          "OK",
				Quantity:    parseQty(l.qty),
				Unit:        l.unit,
				Position:    lot.slot,
			}
			lotRows = append(lotRows, line.ToRow())
		}
		if lot.slot != "" {
			posRows = append(posRows, models.Assignment{LotCode: lot.code, PositionCode: lot.slot}.ToRow())
		}
		fmt.Printf("   ✓ %s (%d lines) %s\n", lot.code, len(lot.lines), lot.slot)
	}
	if err := store.AppendRows(ctx, ledger.LotTable, lotRows); err != nil {
		log.Fatalf("❌ Failed to create lots: %v", err)
	}
	if err := store.AppendRows(ctx, ledger.LotPosTable, posRows); err != nil {
		log.Fatalf("❌ Failed to create slot assignments: %v", err)
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("🎉 Demo data created!")
	fmt.Printf("   Products: %d, lot lines: %d, slots taken: %d\n", len(demoProducts), len(lotRows), len(posRows))
}

func parseQty(s string) decimal.Decimal {
	return decimal.RequireFromString(strings.Replace(s, ",", ".", 1))
}
