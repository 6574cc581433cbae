// Package printer lays out QR label sheets for slots and lots
package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// LabelConfig holds configuration for PDF generation
type LabelConfig struct {
	Codes      []string `json:"codes"`    // one label per code, in order
	QRPrefix   string   `json:"qrPrefix"` // prepended to the code in the QR payload only
	Title      string   `json:"title"`    // small caption top right, e.g. the zone
	Cols       int      `json:"cols"`
	Rows       int      `json:"rows"`
	MarginTop  float64  `json:"marginTop"`
	MarginLeft float64  `json:"marginLeft"`
	GapX       float64  `json:"gapX"`
	GapY       float64  `json:"gapY"`
}

// WithDefaults fills the grid of a 3x7 A4 label sheet
func (c LabelConfig) WithDefaults() LabelConfig {
	if c.Cols <= 0 {
		c.Cols = 3
	}
	if c.Rows <= 0 {
		c.Rows = 7
	}
	if c.MarginTop == 0 {
		c.MarginTop = 10
	}
	if c.MarginLeft == 0 {
		c.MarginLeft = 8
	}
	return c
}

// GenerateLabelsPDF renders one QR label per code on A4 pages
func GenerateLabelsPDF(cfg LabelConfig) ([]byte, error) {
	if len(cfg.Codes) == 0 {
		return nil, fmt.Errorf("no codes to print")
	}
	cfg = cfg.WithDefaults()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Arial", "B", 10)

	pageWidth, pageHeight := pdf.GetPageSize()

	availW := pageWidth - cfg.MarginLeft*2
	availH := pageHeight - cfg.MarginTop*2
	labelW := (availW - float64(cfg.Cols-1)*cfg.GapX) / float64(cfg.Cols)
	labelH := (availH - float64(cfg.Rows-1)*cfg.GapY) / float64(cfg.Rows)
	if labelW <= 0 || labelH <= 0 {
		return nil, fmt.Errorf("label grid %dx%d does not fit the page", cfg.Cols, cfg.Rows)
	}

	qrSize := labelH * 0.7
	if qrSize > labelW {
		qrSize = labelW * 0.9
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	perPage := cfg.Cols * cfg.Rows

	for i, code := range cfg.Codes {
		if i%perPage == 0 {
			pdf.AddPage()
		}
		onPage := i % perPage
		x := cfg.MarginLeft + float64(onPage%cfg.Cols)*(labelW+cfg.GapX)
		y := cfg.MarginTop + float64(onPage/cfg.Cols)*(labelH+cfg.GapY)

		png, err := qrcode.Encode(cfg.QRPrefix+code, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode QR for %s: %w", code, err)
		}
		imgName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(png))

		// QR centered, shifted up to leave room for the caption
		pdf.ImageOptions(imgName, x+(labelW-qrSize)/2, y+(labelH-qrSize)/2-2, qrSize, qrSize, false, imgOptions, 0, "")

		pdf.SetXY(x, y+labelH-6)
		pdf.SetFontSize(9)
		pdf.CellFormat(labelW, 5, code, "", 0, "C", false, 0, "")

		if cfg.Title != "" {
			pdf.SetXY(x, y+1)
			pdf.SetFontSize(6)
			pdf.CellFormat(labelW, 3, cfg.Title, "", 0, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
