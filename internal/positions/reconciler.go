// Package positions reconciles scanner slot assignments with the shared
// ledger. The ledger has no locks, so every item is checked against a fresh
// read of lot_pos right before it is written; an item that would put a second
// lot in an occupied slot is rejected with the occupant named.
//
// Two processes syncing into the same slot at the same moment can still both
// pass the check. Within one process batches are serialized.
package positions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xelth-com/lotscan/internal/audit"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/locations"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/websocket"
)

// Error codes carried in ItemResult.Error
const (
	CodeMissingData      = "MISSING_DATA"
	CodeInvalidPosition  = "INVALID_POSITION"
	CodePositionConflict = "POSITION_CONFLICT"
	CodeLotNotFound      = "LOT_NOT_FOUND"
	CodeSyncFailed       = "SYNC_FAILED"
)

// Audit actions
const (
	ActionAssigned   = "assigned"
	ActionReassigned = "reassigned"
)

const msgAlreadyAssigned = "Already assigned"

// Item asks for lot ID to be placed at Position
type Item struct {
	ID       string `json:"id"`
	Position string `json:"position"`
}

// ItemResult is the outcome for one item
type ItemResult struct {
	LotCode         string `json:"lotCode"`
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	Conflict        bool   `json:"conflict,omitempty"`
	CurrentOccupant string `json:"currentOccupant,omitempty"`
	OldPosCode      string `json:"oldPosCode,omitempty"`
}

// BatchResult summarizes a sync
type BatchResult struct {
	Success      bool         `json:"success"`
	Total        int          `json:"total"`
	SuccessCount int          `json:"successCount"`
	FailCount    int          `json:"failCount"`
	Results      []ItemResult `json:"results"`
}

// Publisher receives live events
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Reconciler applies assignments to lot_pos and mirrors them onto lot lines
type Reconciler struct {
	store  ledger.Store
	audit  audit.Recorder
	events Publisher
	log    *logrus.Logger

	// StrictSlots rejects positions that are not real slots
	StrictSlots bool

	mu  sync.Mutex
	now func() time.Time
}

// NewReconciler wires a reconciler. recorder and events may be nil.
func NewReconciler(store ledger.Store, recorder audit.Recorder, events Publisher) *Reconciler {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Reconciler{
		store:  store,
		audit:  recorder,
		events: events,
		log:    logger.GetLogger("app"),
		now:    time.Now,
	}
}

// SyncAssignments processes items one by one, in order. A failed item is
// reported and the batch moves on.
func (r *Reconciler) SyncAssignments(ctx context.Context, items []Item) *BatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := &BatchResult{Success: true, Total: len(items), Results: make([]ItemResult, 0, len(items))}
	for _, item := range items {
		res := r.syncOne(ctx, item)
		if res.Success {
			out.SuccessCount++
		} else {
			out.FailCount++
		}
		out.Results = append(out.Results, res)
	}

	r.log.WithFields(logrus.Fields{
		"total":   out.Total,
		"success": out.SuccessCount,
		"failed":  out.FailCount,
	}).Info("scanner sync done")
	return out
}

func (r *Reconciler) syncOne(ctx context.Context, item Item) ItemResult {
	lotCode := strings.TrimSpace(item.ID)
	posCode := strings.TrimSpace(item.Position)
	res := ItemResult{LotCode: lotCode}

	fail := func(code, msg string) ItemResult {
		res.Success = false
		res.Error = code
		res.Message = msg
		return res
	}

	if lotCode == "" || posCode == "" {
		return fail(CodeMissingData, "lot code and position are required")
	}
	if r.StrictSlots {
		if !locations.Valid(posCode) {
			return fail(CodeInvalidPosition, fmt.Sprintf("%s is not a known slot", posCode))
		}
		slot, _ := locations.Parse(posCode)
		posCode = slot.Code
	}

	assignments, err := r.store.ReadRows(ctx, ledger.LotPosTable)
	if err != nil {
		r.log.WithError(err).WithField("lotCode", lotCode).Error("read lot_pos failed")
		return fail(CodeSyncFailed, err.Error())
	}

	// own maps the lot's lot_pos rows to the slot each one holds
	own := make(map[int]string)
	var ownIdx []int
	already := false
	oldPos := ""
	for i, row := range assignments {
		a := models.AssignmentFromRow(row)
		if a.LotCode == "" {
			continue
		}
		if a.LotCode != lotCode {
			if strings.EqualFold(a.PositionCode, posCode) {
				res.Conflict = true
				res.CurrentOccupant = a.LotCode
				return fail(CodePositionConflict, fmt.Sprintf("%s is occupied by %s", posCode, a.LotCode))
			}
			continue
		}
		own[i] = a.PositionCode
		ownIdx = append(ownIdx, i)
		if strings.EqualFold(a.PositionCode, posCode) {
			if !already && !r.StrictSlots {
				// Same slot typed in another case: keep the stored spelling
				posCode = a.PositionCode
			}
			already = true
		} else if oldPos == "" {
			oldPos = a.PositionCode
		}
	}

	lotRows, err := r.store.ReadRows(ctx, ledger.LotTable)
	if err != nil {
		r.log.WithError(err).WithField("lotCode", lotCode).Error("read lots failed")
		return fail(CodeSyncFailed, err.Error())
	}
	lines, lineIdx := models.LinesOf(lotRows, lotCode)

	// A no-op only when lot_pos and every line already agree. An earlier
	// attempt that stopped after the upsert falls through and is finished here.
	if already && oldPos == "" && mirrored(lines, posCode) {
		res.Success = true
		res.Message = msgAlreadyAssigned
		return res
	}
	if len(lines) == 0 {
		return fail(CodeLotNotFound, "lot not found")
	}
	if oldPos == "" && !strings.EqualFold(lines[0].Position, posCode) {
		oldPos = lines[0].Position
	}

	// Upsert: every existing entry for the lot points at the new slot, or a new one is added
	if len(ownIdx) > 0 {
		for _, i := range ownIdx {
			if own[i] == posCode {
				continue
			}
			if err := r.store.UpdateCell(ctx, ledger.LotPosTable, i, models.ColAssignPos, posCode); err != nil {
				return fail(CodeSyncFailed, err.Error())
			}
		}
	} else {
		row := models.Assignment{LotCode: lotCode, PositionCode: posCode}.ToRow()
		if err := r.store.AppendRows(ctx, ledger.LotPosTable, []ledger.Row{row}); err != nil {
			return fail(CodeSyncFailed, err.Error())
		}
	}

	// Mirror onto the lot's lines
	for n, i := range lineIdx {
		if lines[n].Position == posCode {
			continue
		}
		if err := r.store.UpdateCell(ctx, ledger.LotTable, i, models.ColPosition, posCode); err != nil {
			r.log.WithError(err).WithField("lotCode", lotCode).Error("mirror position failed")
			return fail(CodeSyncFailed, err.Error())
		}
	}

	action := ActionAssigned
	details := map[string]interface{}{"lotCode": lotCode, "posCode": posCode}
	if oldPos != "" && !strings.EqualFold(oldPos, posCode) {
		action = ActionReassigned
		details["oldPosCode"] = oldPos
		res.OldPosCode = oldPos
	}
	details["action"] = action

	r.audit.Record(audit.NewEntry(ctx, r.now(), details))
	if r.events != nil {
		r.events.Publish(websocket.EventPositionAssigned, details)
	}

	r.log.WithFields(logrus.Fields{"lotCode": lotCode, "posCode": posCode, "action": action}).Info("position synced")
	res.Success = true
	return res
}

// mirrored reports whether every line already carries posCode
func mirrored(lines []models.LotLine, posCode string) bool {
	for _, l := range lines {
		if l.Position != posCode {
			return false
		}
	}
	return true
}
