package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xelth-com/lotscan/internal/audit"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/positions"
	"github.com/xelth-com/lotscan/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := ledger.Open(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to open %s ledger: %v\n", cfg.Ledger.Backend, err)
		os.Exit(1)
	}
	defer closeStore()

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║              📊 Lot Ledger Report                         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	counts := make(map[string]int)
	for _, t := range ledger.Tables() {
		rows, err := store.ReadRows(ctx, t)
		if err != nil {
			fmt.Printf("  ⚠️  %s: %v\n", t.Name, err)
			continue
		}
		counts[t.Name] = len(rows)
	}

	fmt.Println("📈 LEDGER STATISTICS")
	fmt.Println("──────────────────────────────────────────────────────────")
	fmt.Printf("  Lot lines:       %4d\n", counts[ledger.LotTable.Name])
	fmt.Printf("  Exported lines:  %4d\n", counts[ledger.DeletedLotTable.Name])
	fmt.Printf("  Slot records:    %4d\n", counts[ledger.LotPosTable.Name])
	fmt.Printf("  Products:        %4d\n", counts[ledger.ProductTable.Name])
	fmt.Printf("  Audit entries:   %4d\n", counts[ledger.AuditTable.Name])
	fmt.Println()

	products, err := catalog.New(store).List(ctx, true)
	if err == nil && len(products) > 0 {
		fmt.Println("📦 PRODUCTS")
		fmt.Println("──────────────────────────────────────────────────────────")
		for _, p := range products {
			flag := ""
			if p.Disabled {
				flag = " (disabled)"
			}
			fmt.Printf("  %s %s%s\n", p.Code, p.Name, flag)
			fmt.Printf("      └─ %s / %s / %s  ratios %s, %s\n",
				p.UOMSmall, p.UOMMedium, p.UOMLarge, p.RatioSmallToMedium, p.RatioMediumToLarge)
		}
		fmt.Println()
	}

	rows, err := store.ReadRows(ctx, ledger.LotTable)
	if err == nil && len(rows) > 0 {
		byLot := make(map[string][]models.LotLine)
		var order []string
		for _, r := range rows {
			l := models.LotLineFromRow(r)
			if l.LotCode == "" {
				continue
			}
			if _, ok := byLot[l.LotCode]; !ok {
				order = append(order, l.LotCode)
			}
			byLot[l.LotCode] = append(byLot[l.LotCode], l)
		}

		fmt.Println("🏷️  LOTS")
		fmt.Println("──────────────────────────────────────────────────────────")
		for _, code := range order {
			lines := byLot[code]
			pos := models.HeaderOf(lines).Position
			if pos == "" {
				pos = "-"
			}
			fmt.Printf("  %s @ %s\n", code, pos)
			for _, l := range lines {
				fmt.Printf("      └─ %s %s %s\n", l.ProductCode, utils.FormatVN(l.Quantity), l.Unit)
			}
		}
		fmt.Println()
	}

	occ, err := positions.NewReconciler(store, nil, nil).Occupancy(ctx)
	if err == nil && len(occ.Occupied) > 0 {
		slots := make([]string, 0, len(occ.Occupied))
		for s := range occ.Occupied {
			slots = append(slots, s)
		}
		sort.Strings(slots)

		fmt.Println("📍 OCCUPIED SLOTS")
		fmt.Println("──────────────────────────────────────────────────────────")
		for _, s := range slots {
			fmt.Printf("  %-16s %s\n", s, occ.Occupied[s])
		}
		fmt.Println()
	}

	entries, err := audit.Recent(ctx, store, 5)
	if err == nil && len(entries) > 0 {
		fmt.Println("📝 LATEST AUDIT ENTRIES")
		fmt.Println("──────────────────────────────────────────────────────────")
		for _, e := range entries {
			details, _ := json.Marshal(e.Details)
			fmt.Printf("  %s %s %s %s\n", utils.VNTimestamp(e.Timestamp), e.Username, e.Path, details)
		}
	}
}
