package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/utils"
)

// Product is a catalog entry with its three-tier unit hierarchy
type Product struct {
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Group              string          `json:"group"`
	UOMSmall           string          `json:"uomSmall"`
	UOMMedium          string          `json:"uomMedium"`
	UOMLarge           string          `json:"uomLarge"`
	RatioSmallToMedium decimal.Decimal `json:"ratioSmallToMedium"` // small units per medium
	RatioMediumToLarge decimal.Decimal `json:"ratioMediumToLarge"` // medium units per large
	Spec               string          `json:"spec"`
	Description        string          `json:"description,omitempty"`
	ImageURL           string          `json:"imageUrl,omitempty"`
	ImageURL2          string          `json:"imageUrl2,omitempty"`
	ImageURL3          string          `json:"imageUrl3,omitempty"`
	Disabled           bool            `json:"disabled,omitempty"`
}

// ProductFromRow reads a Products row; rows without a code yield ok=false
func ProductFromRow(row ledger.Row) (Product, bool) {
	cell := func(col int) string { return strings.TrimSpace(row.Cell(col)) }
	p := Product{
		Code:               cell(ColProductCodeP),
		Name:               cell(ColProductNameP),
		Group:              cell(ColProductGroup),
		UOMSmall:           cell(ColUOMSmall),
		UOMMedium:          cell(ColUOMMedium),
		UOMLarge:           cell(ColUOMLarge),
		RatioSmallToMedium: utils.ParseVN(row.Cell(ColRatioSmallToMed)),
		RatioMediumToLarge: utils.ParseVN(row.Cell(ColRatioMedToLarge)),
		Spec:               cell(ColSpec),
		Description:        cell(ColDescription),
		ImageURL:           cell(ColImageURL1),
		ImageURL2:          cell(ColImageURL2),
		ImageURL3:          cell(ColImageURL3),
	}
	return p, p.Code != ""
}

// DisabledCodeFromRow reads the disabled-code column of a Products row
func DisabledCodeFromRow(row ledger.Row) string {
	return strings.TrimSpace(row.Cell(ColDisabledCode))
}
