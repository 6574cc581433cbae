package models

import (
	"strings"

	"github.com/xelth-com/lotscan/internal/ledger"
)

// Assignment records which slot a lot sits in
type Assignment struct {
	LotCode      string `json:"lotCode"`
	PositionCode string `json:"posCode"`
}

// AssignmentFromRow reads a lot_pos row
func AssignmentFromRow(row ledger.Row) Assignment {
	return Assignment{
		LotCode:      strings.TrimSpace(row.Cell(ColAssignLot)),
		PositionCode: strings.TrimSpace(row.Cell(ColAssignPos)),
	}
}

func (a Assignment) ToRow() ledger.Row {
	return ledger.Row{a.LotCode, a.PositionCode}
}
