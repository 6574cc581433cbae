package handlers

import (
	"net/http"

	"github.com/xelth-com/lotscan/internal/conversion"
	"github.com/xelth-com/lotscan/internal/utils"
)

// PreviewRequest asks what an export would do to a line
type PreviewRequest struct {
	ProductCode string            `json:"productCode"`
	CurrentQty  utils.FlexDecimal `json:"currentQty"`
	CurrentUnit string            `json:"currentUnit" validate:"required"`
	ExportQty   utils.FlexDecimal `json:"exportQty"`
	ExportUnit  string            `json:"exportUnit"`
}

// previewConversion runs the conversion without touching the ledger. An
// export larger than the line comes back with isValid false, not an error.
func (r *Router) previewConversion(w http.ResponseWriter, req *http.Request) {
	var body PreviewRequest
	if err := r.decode(req, &body); err != nil {
		r.respondAppError(w, err, "")
		return
	}

	product, err := r.deps.Catalog.GetProduct(req.Context(), body.ProductCode)
	if err != nil {
		r.respondAppError(w, err, "READ_FAILED")
		return
	}

	res, err := conversion.Compute(body.CurrentQty.Decimal, body.CurrentUnit, body.ExportQty.Decimal, body.ExportUnit, product)
	if err != nil {
		r.respondAppError(w, err, "")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
