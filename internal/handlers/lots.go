package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/conversion"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/utils"
)

// ExportRequest is the body of POST /api/lots/export
type ExportRequest struct {
	LotCode   string            `json:"lotCode"`
	Mode      string            `json:"mode"`
	Reason    string            `json:"reason"`
	DeletedBy string            `json:"deletedBy"`
	Items     []ExportSelection `json:"items" validate:"dive"`
}

// ExportSelection picks an amount out of one of the lot's lines
type ExportSelection struct {
	LineIndex int               `json:"lineIndex"`
	Quantity  utils.FlexDecimal `json:"quantity"`
	Unit      string            `json:"unit"`
}

func (r *Router) exportLot(w http.ResponseWriter, req *http.Request) {
	var body ExportRequest
	if err := r.decode(req, &body); err != nil {
		r.respondAppError(w, err, "EXPORT_FAILED")
		return
	}

	in := export.Request{
		LotCode:   body.LotCode,
		Mode:      body.Mode,
		Reason:    body.Reason,
		DeletedBy: body.DeletedBy,
	}
	for _, it := range body.Items {
		in.Items = append(in.Items, export.Selection{
			LineIndex: it.LineIndex,
			Quantity:  it.Quantity.Decimal,
			Unit:      it.Unit,
		})
	}

	res, err := r.deps.Exports.ExportLot(req.Context(), in)
	if err != nil {
		r.respondAppError(w, err, export.CodeExportFailed)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// LineView is one lot line as the export screen shows it
type LineView struct {
	Index       int               `json:"index"`
	ProductCode string            `json:"productCode"`
	ProductName string            `json:"productName"`
	ProductType string            `json:"productType,omitempty"`
	Quantity    utils.FlexDecimal `json:"quantity"`
	Unit        string            `json:"unit"`
	Units       []string          `json:"units,omitempty"` // units the line can be exported in
	Status      string            `json:"status,omitempty"`
	MergedTo    string            `json:"mergedTo,omitempty"`
}

// LotView is the response of GET /api/lots/{code}/lines
type LotView struct {
	LotCode string            `json:"lotCode"`
	Header  *models.LotHeader `json:"header"`
	Lines   []LineView        `json:"lines"`
}

func (r *Router) lotLines(w http.ResponseWriter, req *http.Request) {
	code := strings.TrimSpace(mux.Vars(req)["code"])

	rows, err := r.deps.Store.ReadRows(req.Context(), ledger.LotTable)
	if err != nil {
		r.respondAppError(w, err, "READ_FAILED")
		return
	}
	lines, _ := models.LinesOf(rows, code)
	if len(lines) == 0 {
		r.respondAppError(w, apperr.NotFound(export.CodeLotNotFound, "lot not found").With("lotCode", code), "")
		return
	}

	products, err := r.deps.Catalog.Products(req.Context())
	if err != nil {
		// The view still works without unit choices
		r.log.WithError(err).Warn("products unavailable for lot view")
	}

	view := LotView{LotCode: code, Header: models.HeaderOf(lines), Lines: make([]LineView, len(lines))}
	for i, l := range lines {
		view.Lines[i] = LineView{
			Index:       i,
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			ProductType: l.ProductType,
			Quantity:    utils.FlexDecimal{Decimal: l.Quantity},
			Unit:        l.Unit,
			Units:       conversion.Units(catalog.Lookup(products, l.ProductCode)),
			Status:      l.Status,
			MergedTo:    l.MergedTo,
		}
	}
	respondJSON(w, http.StatusOK, view)
}
