// Package export takes quantities out of lots. A full export moves every line
// of a lot to the deletion ledger; a partial export takes selected amounts,
// converting units where needed, and writes back what is left.
//
// The ledger has no transactions, so an export is an ordered list of writes:
// ledger rows first, then the lot's old rows are deleted, then the surviving
// lines are appended. A lot left with no lines also gives up its slot in
// lot_pos. A failure part way leaves extra ledger rows rather than
// lost stock, and is reported as EXPORT_INCOMPLETE with the failed step.
package export

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/audit"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/conversion"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/utils"
	"github.com/xelth-com/lotscan/internal/websocket"
)

// Modes
const (
	ModeFull    = "FULL"
	ModePartial = "PARTIAL"
)

// Error codes
const (
	CodeLotCodeRequired  = "LOT_CODE_REQUIRED"
	CodeReasonRequired   = "REASON_REQUIRED"
	CodeInvalidMode      = "INVALID_MODE"
	CodeNoItems          = "NO_ITEMS_TO_EXPORT"
	CodeLotNotFound      = "LOT_NOT_FOUND"
	CodeInvalidLineIndex = "INVALID_LINE_INDEX"
	CodeExportFailed     = "EXPORT_FAILED"
	CodeExportIncomplete = "EXPORT_INCOMPLETE"
)

// Step names, in execution order
const (
	StepAppendLedger    = "append_ledger"
	StepDeleteLotRows   = "delete_lot_rows"
	StepAppendSurvivors = "append_survivors"
	StepClearPositions  = "clear_positions"
)

// Selection takes Quantity Unit out of the lot's line at LineIndex.
// LineIndex counts the lot's lines in table order, from 0.
type Selection struct {
	LineIndex int
	Quantity  decimal.Decimal
	Unit      string
}

// Request is one export operation
type Request struct {
	LotCode   string
	Mode      string
	Reason    string
	DeletedBy string
	Items     []Selection
}

// Result reports a completed export
type Result struct {
	OK             bool   `json:"ok"`
	Message        string `json:"message"`
	DeletedRows    int    `json:"deletedRows"`
	RemainingLines int    `json:"remainingLines"`
	ExportID       string `json:"exportId"`
}

// ProductSource loads the catalog for partial exports
type ProductSource interface {
	Products(ctx context.Context) (map[string]models.Product, error)
}

// Publisher receives live events
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// Service runs exports against the ledger
type Service struct {
	store    ledger.Store
	products ProductSource
	audit    audit.Recorder
	events   Publisher
	log      *logrus.Logger

	// Exports of one process are serialized so two requests cannot plan against the same read
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewService wires an export service. recorder and events may be nil.
func NewService(store ledger.Store, products ProductSource, recorder audit.Recorder, events Publisher) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Service{
		store:    store,
		products: products,
		audit:    recorder,
		events:   events,
		log:      logger.GetLogger("app"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// plan is the pure outcome of an export: rows to record and lines to keep
type plan struct {
	ledgerRows []ledger.Row
	survivors  []models.LotLine
	originals  []ledger.Row // the lot's rows as read when planning
}

func normalize(req *Request) error {
	req.LotCode = strings.TrimSpace(req.LotCode)
	req.Reason = strings.TrimSpace(req.Reason)
	req.DeletedBy = strings.TrimSpace(req.DeletedBy)
	req.Mode = strings.ToUpper(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = ModeFull
	}

	switch {
	case req.LotCode == "":
		return apperr.Validation(CodeLotCodeRequired, "lot code is required")
	case req.Reason == "":
		return apperr.Validation(CodeReasonRequired, "export reason is required")
	case req.Mode != ModeFull && req.Mode != ModePartial:
		return apperr.Validation(CodeInvalidMode, "mode must be FULL or PARTIAL").With("mode", req.Mode)
	case req.Mode == ModePartial && len(req.Items) == 0:
		return apperr.Validation(CodeNoItems, "no items selected for a partial export")
	}
	return nil
}

// ExportLot validates req, plans the export and applies it
func (s *Service) ExportLot(ctx context.Context, req Request) (*Result, error) {
	if err := normalize(&req); err != nil {
		return nil, err
	}
	if req.DeletedBy == "" {
		req.DeletedBy = utils.IdentityFrom(ctx).Username
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.store.ReadRows(ctx, ledger.LotTable)
	if err != nil {
		return nil, apperr.Wrap(CodeExportFailed, fmt.Errorf("read lots: %w", err))
	}
	lines, lineIdx := models.LinesOf(rows, req.LotCode)
	if len(lines) == 0 {
		return nil, apperr.NotFound(CodeLotNotFound, "lot not found").With("lotCode", req.LotCode)
	}

	at := s.now()
	exportID := s.newID()
	stamp := func(line models.LotLine) ledger.Row {
		return models.DeletionRow(line, utils.VNTimestamp(at), req.DeletedBy, req.Reason, exportID)
	}

	var p *plan
	if req.Mode == ModeFull {
		p = planFull(lines, stamp)
	} else {
		products, err := s.products.Products(ctx)
		if err != nil {
			return nil, apperr.Wrap(CodeExportFailed, fmt.Errorf("load products: %w", err))
		}
		p, err = planPartial(lines, req.Items, products, stamp)
		if err != nil {
			return nil, err
		}
	}

	for _, i := range lineIdx {
		p.originals = append(p.originals, rows[i])
	}

	entry := s.log.WithFields(logrus.Fields{"exportId": exportID, "lotCode": req.LotCode, "mode": req.Mode})
	if err := s.apply(ctx, req.LotCode, p, entry); err != nil {
		return nil, err
	}

	details := map[string]interface{}{
		"lotCode":     req.LotCode,
		"mode":        req.Mode,
		"reason":      req.Reason,
		"deletedRows": len(p.ledgerRows),
		"products":    summarize(p.ledgerRows),
		"exportId":    exportID,
	}
	rec := audit.NewEntry(ctx, at, details)
	if rec.Username == "" {
		rec.Username = req.DeletedBy
	}
	s.audit.Record(rec)
	if s.events != nil {
		s.events.Publish(websocket.EventLotExported, details)
	}

	msg := "Lot fully exported"
	if req.Mode == ModePartial {
		msg = "Lot partially exported"
	}
	return &Result{
		OK:             true,
		Message:        msg,
		DeletedRows:    len(p.ledgerRows),
		RemainingLines: len(p.survivors),
		ExportID:       exportID,
	}, nil
}

func planFull(lines []models.LotLine, stamp func(models.LotLine) ledger.Row) *plan {
	p := &plan{}
	for _, l := range lines {
		p.ledgerRows = append(p.ledgerRows, stamp(l))
	}
	return p
}

// planPartial applies the selections in order to a working copy of the lines.
// Selections on the same line see each other's deductions. Any failure
// rejects the whole request.
func planPartial(lines []models.LotLine, items []Selection, products map[string]models.Product, stamp func(models.LotLine) ledger.Row) (*plan, error) {
	work := make([]models.LotLine, len(lines))
	copy(work, lines)
	original := len(lines)

	p := &plan{}
	for n, item := range items {
		if item.LineIndex < 0 || item.LineIndex >= original {
			return nil, apperr.Validation(CodeInvalidLineIndex, "line index out of range").
				With("lineIndex", item.LineIndex).
				With("item", n).
				With("lines", original)
		}
		line := &work[item.LineIndex]

		exportUnit := strings.TrimSpace(item.Unit)
		if exportUnit == "" {
			exportUnit = line.Unit
		}
		product := catalog.Lookup(products, line.ProductCode)

		res, err := conversion.Check(line.Quantity, line.Unit, item.Quantity, exportUnit, product)
		if err != nil {
			if e, ok := apperr.As(err); ok {
				e.With("lineIndex", item.LineIndex).With("productCode", line.ProductCode)
			}
			return nil, err
		}

		exported := *line
		exported.Quantity = item.Quantity
		exported.Unit = exportUnit
		p.ledgerRows = append(p.ledgerRows, stamp(exported))

		line.Quantity = line.Quantity.Sub(res.Consumed)

		if res.Remainder.IsPositive() {
			rem := *line
			rem.Quantity = res.Remainder.Round(utils.QuantityPlaces)
			rem.Unit = res.RemainderUnit
			work = append(work, rem)
		}
	}

	for _, l := range work {
		if l.Quantity.IsPositive() {
			p.survivors = append(p.survivors, l)
		}
	}
	return p, nil
}

// apply runs the ordered writes. Nothing has changed if the first step fails.
func (s *Service) apply(ctx context.Context, lotCode string, p *plan, log *logrus.Entry) error {
	if err := s.store.AppendRows(ctx, ledger.DeletedLotTable, p.ledgerRows); err != nil {
		log.WithError(err).WithField("step", StepAppendLedger).Error("export failed")
		return apperr.Wrap(CodeExportFailed, fmt.Errorf("record deletion ledger: %w", err))
	}
	log.WithFields(logrus.Fields{"step": StepAppendLedger, "rows": len(p.ledgerRows)}).Info("export step done")

	incomplete := func(step string, err error) error {
		log.WithError(err).WithField("step", step).Error("export incomplete")
		e := apperr.Wrap(CodeExportIncomplete, fmt.Errorf("%s: %w", step, err))
		e.Message = fmt.Sprintf("export recorded but step %s failed: %v", step, err)
		return e.With("step", step)
	}

	// Row positions may have shifted since planning, so look them up again.
	// Only rows that still read as planned are deleted; a line another writer
	// added to the lot meanwhile stays.
	rows, err := s.store.ReadRows(ctx, ledger.LotTable)
	if err != nil {
		return incomplete(StepDeleteLotRows, err)
	}
	_, current := models.LinesOf(rows, lotCode)
	indices := matchRows(rows, current, p.originals)
	if len(indices) != len(p.originals) || len(indices) != len(current) {
		log.WithFields(logrus.Fields{
			"step":    StepDeleteLotRows,
			"planned": len(p.originals),
			"found":   len(current),
			"matched": len(indices),
		}).Warn("lot rows changed since planning")
	}
	if err := s.store.DeleteRows(ctx, ledger.LotTable, indices); err != nil {
		return incomplete(StepDeleteLotRows, err)
	}
	log.WithFields(logrus.Fields{"step": StepDeleteLotRows, "rows": len(indices)}).Info("export step done")

	if len(p.survivors) > 0 {
		survivors := make([]ledger.Row, len(p.survivors))
		for i, l := range p.survivors {
			survivors[i] = l.ToRow()
		}
		if err := s.store.AppendRows(ctx, ledger.LotTable, survivors); err != nil {
			return incomplete(StepAppendSurvivors, err)
		}
		log.WithFields(logrus.Fields{"step": StepAppendSurvivors, "rows": len(survivors)}).Info("export step done")
		return nil
	}
	if len(current) > len(indices) {
		// Lines added meanwhile still sit in the slot
		return nil
	}

	assignments, err := s.store.ReadRows(ctx, ledger.LotPosTable)
	if err != nil {
		return incomplete(StepClearPositions, err)
	}
	var held []int
	for i, row := range assignments {
		if models.AssignmentFromRow(row).LotCode == lotCode {
			held = append(held, i)
		}
	}
	if len(held) == 0 {
		return nil
	}
	if err := s.store.DeleteRows(ctx, ledger.LotPosTable, held); err != nil {
		return incomplete(StepClearPositions, err)
	}
	log.WithFields(logrus.Fields{"step": StepClearPositions, "rows": len(held)}).Info("export step done")
	return nil
}

// matchRows picks, among the candidate indices, the rows equal to one of the
// planned rows. Each planned row is matched at most once.
func matchRows(rows []ledger.Row, candidates []int, planned []ledger.Row) []int {
	used := make([]bool, len(planned))
	var out []int
	for _, i := range candidates {
		for n, want := range planned {
			if !used[n] && sameRow(rows[i], want) {
				used[n] = true
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func sameRow(a, b ledger.Row) bool {
	a, b = a.Padded(models.LotColumns), b.Padded(models.LotColumns)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// summarize renders "code (name): qty unit; ..." for the audit log
func summarize(rows []ledger.Row) string {
	var parts []string
	for _, r := range rows {
		code := r.Cell(models.ColProductCode)
		if code == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s): %s %s",
			code, r.Cell(models.ColProductName), r.Cell(models.ColQuantity), r.Cell(models.ColUnit)))
	}
	return strings.Join(parts, "; ")
}
