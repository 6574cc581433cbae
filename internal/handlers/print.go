package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xelth-com/lotscan/internal/services/printer"
)

// locationLabels prints QR labels for the slots selected by ?warehouse and ?zone
func (r *Router) locationLabels(w http.ResponseWriter, req *http.Request) {
	slots, ok := slotFilter(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_FILTER", "Unknown warehouse or zone")
		return
	}

	cfg := printer.LabelConfig{Title: titleOf(req)}
	for _, s := range slots {
		cfg.Codes = append(cfg.Codes, s.Code)
	}
	r.writeLabels(w, cfg, "locations")
}

// LotLabelRequest lists lots to print QR labels for
type LotLabelRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,dive,required"`
	Cols  int      `json:"cols" validate:"gte=0,lte=10"`
	Rows  int      `json:"rows" validate:"gte=0,lte=20"`
}

// lotLabels prints lot labels whose QR opens the lot on the scanner
func (r *Router) lotLabels(w http.ResponseWriter, req *http.Request) {
	var body LotLabelRequest
	if err := r.decode(req, &body); err != nil {
		r.respondAppError(w, err, "")
		return
	}
	cfg := printer.LabelConfig{
		Codes:    body.Codes,
		QRPrefix: r.deps.LabelQRURL,
		Cols:     body.Cols,
		Rows:     body.Rows,
	}
	r.writeLabels(w, cfg, "lots")
}

func (r *Router) writeLabels(w http.ResponseWriter, cfg printer.LabelConfig, name string) {
	pdfBytes, err := printer.GenerateLabelsPDF(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LABELS_FAILED", fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	// Set headers for download
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"labels_%s_%d.pdf\"", name, len(cfg.Codes)))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))

	w.Write(pdfBytes)
}

func titleOf(req *http.Request) string {
	q := req.URL.Query()
	var parts []string
	if v := q.Get("warehouse"); v != "" {
		parts = append(parts, "K"+v)
	}
	if v := q.Get("zone"); v != "" {
		parts = append(parts, strings.ToUpper(v))
	}
	return strings.Join(parts, " ")
}
