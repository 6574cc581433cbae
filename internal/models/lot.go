package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/utils"
)

// LotLine is one product quantity, in one unit, inside a lot
type LotLine struct {
	LotCode     string
	ProductCode string
	ProductName string
	ProductType string
	PeelDate    string
	PackDate    string
	QC          string
	Quantity    decimal.Decimal
	Unit        string
	Shots       string
	ImageURL    string
	Position    string
	Status      string
	MergedTo    string

	raw ledger.Row
}

// LotLineFromRow reads a lot table row. Cells the record has no field for are
// kept and written back untouched by ToRow.
func LotLineFromRow(row ledger.Row) LotLine {
	cell := func(col int) string { return strings.TrimSpace(row.Cell(col)) }
	return LotLine{
		LotCode:     cell(ColLotCode),
		ProductCode: cell(ColProductCode),
		ProductName: cell(ColProductName),
		ProductType: cell(ColProductType),
		PeelDate:    cell(ColPeelDate),
		PackDate:    cell(ColPackDate),
		QC:          cell(ColQC),
		Quantity:    utils.ParseVN(row.Cell(ColQuantity)),
		Unit:        cell(ColUnit),
		Shots:       cell(ColShots),
		ImageURL:    cell(ColImageURL),
		Position:    cell(ColPosition),
		Status:      cell(ColStatus),
		MergedTo:    cell(ColMergedTo),
		raw:         row.Padded(LotColumns),
	}
}

// ToRow renders the line back into a lot table row. A field that still reads
// the same as its original cell keeps the original text, so an untouched line
// round-trips byte for byte.
func (l LotLine) ToRow() ledger.Row {
	row := l.raw.Padded(LotColumns)
	set := func(col int, v string) {
		if strings.TrimSpace(row[col]) != v {
			row[col] = v
		}
	}
	set(ColLotCode, l.LotCode)
	set(ColProductCode, l.ProductCode)
	set(ColProductName, l.ProductName)
	set(ColProductType, l.ProductType)
	set(ColPeelDate, l.PeelDate)
	set(ColPackDate, l.PackDate)
	set(ColQC, l.QC)
	if !utils.ParseVN(row[ColQuantity]).Equal(l.Quantity) || strings.TrimSpace(row[ColQuantity]) == "" {
		row[ColQuantity] = utils.FormatVN(l.Quantity)
	}
	set(ColUnit, l.Unit)
	set(ColShots, l.Shots)
	set(ColImageURL, l.ImageURL)
	set(ColPosition, l.Position)
	set(ColStatus, l.Status)
	set(ColMergedTo, l.MergedTo)
	return row
}

// IsMerged reports whether the lot was folded into another one
func (l LotLine) IsMerged() bool {
	return l.MergedTo != "" || strings.EqualFold(l.Status, StatusMerged)
}

// DeletionRow builds the deletion ledger copy of a line
func DeletionRow(line LotLine, deletedAt, deletedBy, reason, exportID string) ledger.Row {
	row := make(ledger.Row, DeletedLotColumns)
	copy(row, line.ToRow()[:LotCopyColumns])
	row[ColDeletedAt] = deletedAt
	row[ColDeletedBy] = deletedBy
	row[ColReason] = reason
	row[ColExportID] = exportID
	return row
}

// LotHeader is the data every line of a lot shares
type LotHeader struct {
	PeelDate string `json:"peelDate,omitempty"`
	PackDate string `json:"packDate,omitempty"`
	QC       string `json:"qc,omitempty"`
	Position string `json:"position,omitempty"`
}

// HeaderOf returns the shared header of a lot's lines, taken from the first line
func HeaderOf(lines []LotLine) *LotHeader {
	if len(lines) == 0 {
		return nil
	}
	first := lines[0]
	return &LotHeader{PeelDate: first.PeelDate, PackDate: first.PackDate, QC: first.QC, Position: first.Position}
}

// LinesOf picks the lines of one lot out of a lot table read, with their row indices
func LinesOf(rows []ledger.Row, lotCode string) ([]LotLine, []int) {
	var lines []LotLine
	var idx []int
	for i, r := range rows {
		if strings.TrimSpace(r.Cell(ColLotCode)) == lotCode {
			lines = append(lines, LotLineFromRow(r))
			idx = append(idx, i)
		}
	}
	return lines, idx
}
