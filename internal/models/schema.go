// Package models maps ledger rows to named records. Every column position the
// service depends on is pinned here; nothing else indexes into a row.
package models

// SchemaVersion identifies the column layout below. Bump it when a column moves.
const SchemaVersion = 1

// Lot table (lot!A:S)
const (
	ColLotCode     = 0
	ColProductCode = 1
	ColProductName = 2
	ColProductType = 3
	ColPeelDate    = 4
	ColPackDate    = 5
	ColQC          = 6
	// 7..9 are auxiliary receiving columns, carried verbatim
	ColQuantity = 10
	ColUnit     = 11
	ColShots    = 12
	ColImageURL = 13
	ColPosition = 14
	// 15 is carried verbatim
	ColStatus   = 16
	ColMergedTo = 17
	// 18 is carried verbatim

	LotColumns = 19
)

// Deletion ledger (deletelot!A:T): the first LotCopyColumns lot cells, then the export trailer
const (
	LotCopyColumns = 16

	ColDeletedAt = 16
	ColDeletedBy = 17
	ColReason    = 18
	ColExportID  = 19

	DeletedLotColumns = 20
)

// Position assignment table (lot_pos!A:B)
const (
	ColAssignLot = 0
	ColAssignPos = 1
)

// Products table (Products!A:P)
const (
	ColProductCodeP    = 0
	ColProductNameP    = 1
	ColProductGroup    = 2
	ColUOMSmall        = 3
	ColUOMMedium       = 4
	ColUOMLarge        = 5
	ColRatioSmallToMed = 6
	ColRatioMedToLarge = 7
	ColSpec            = 8
	ColDescription     = 9
	ColImageURL1       = 10
	ColImageURL2       = 11
	ColImageURL3       = 12
	// Disabled product codes live in their own column, unrelated to the row they sit on
	ColDisabledCode = 15
)

// Audit log (audit_log!A:I)
const (
	ColAuditTS = iota
	ColAuditUsername
	ColAuditName
	ColAuditMethod
	ColAuditPath
	ColAuditQuery
	ColAuditIP
	ColAuditUA
	ColAuditDetails

	AuditColumns
)

// StatusMerged marks a lot folded into another one
const StatusMerged = "MERGED"
