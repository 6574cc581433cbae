package positions

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/models"
)

// MergedUnknown stands in for the target of a lot marked merged without one
const MergedUnknown = "UNKNOWN"

// Occupancy is what scanners use for their local conflict pre-check
type Occupancy struct {
	Occupied   map[string]string `json:"occupied"`   // position -> lot
	MergedLots map[string]string `json:"mergedLots"` // lot -> lot it was merged into
}

// Occupancy builds the slot map from the lot lines, falling back to lot_pos
// when no line carries a position. One failing read is tolerated.
func (r *Reconciler) Occupancy(ctx context.Context) (*Occupancy, error) {
	var lotRows, posRows []ledger.Row
	var lotErr, posErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lotRows, lotErr = r.store.ReadRows(gctx, ledger.LotTable)
		return nil
	})
	g.Go(func() error {
		posRows, posErr = r.store.ReadRows(gctx, ledger.LotPosTable)
		return nil
	})
	_ = g.Wait()

	if lotErr != nil && posErr != nil {
		return nil, fmt.Errorf("read occupancy: %w", lotErr)
	}
	if lotErr != nil {
		r.log.WithError(lotErr).Warn("occupancy: lot table unreadable, using lot_pos")
	}
	if posErr != nil {
		r.log.WithError(posErr).Warn("occupancy: lot_pos unreadable")
	}

	occ := &Occupancy{Occupied: make(map[string]string), MergedLots: make(map[string]string)}
	seen := make(map[string]bool)
	for _, row := range lotRows {
		line := models.LotLineFromRow(row)
		if line.LotCode == "" {
			continue
		}
		if line.Position != "" && !seen[line.LotCode] {
			seen[line.LotCode] = true
			occ.Occupied[line.Position] = line.LotCode
		}
		if line.IsMerged() {
			target := line.MergedTo
			if target == "" {
				target = MergedUnknown
			}
			occ.MergedLots[line.LotCode] = target
		}
	}

	if len(occ.Occupied) == 0 {
		for _, row := range posRows {
			a := models.AssignmentFromRow(row)
			if a.LotCode != "" && a.PositionCode != "" {
				occ.Occupied[a.PositionCode] = a.LotCode
			}
		}
	}
	return occ, nil
}
