package models

import (
	"encoding/json"
	"time"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/utils"
)

// AuditEntry is one row of the audit log
type AuditEntry struct {
	Timestamp time.Time              `json:"ts"`
	Username  string                 `json:"username"`
	Name      string                 `json:"name,omitempty"`
	Method    string                 `json:"method"`
	Path      string                 `json:"path"`
	Query     string                 `json:"query,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"ua,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func (e AuditEntry) ToRow() ledger.Row {
	details := []byte("{}")
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			details = b
		}
	}
	return ledger.Row{
		utils.VNTimestamp(e.Timestamp),
		e.Username,
		e.Name,
		e.Method,
		e.Path,
		e.Query,
		e.IP,
		e.UserAgent,
		string(details),
	}
}

// AuditEntryFromRow reads an audit_log row. Unparseable details read as empty.
func AuditEntryFromRow(row ledger.Row) AuditEntry {
	e := AuditEntry{
		Username:  row.Cell(ColAuditUsername),
		Name:      row.Cell(ColAuditName),
		Method:    row.Cell(ColAuditMethod),
		Path:      row.Cell(ColAuditPath),
		Query:     row.Cell(ColAuditQuery),
		IP:        row.Cell(ColAuditIP),
		UserAgent: row.Cell(ColAuditUA),
	}
	if ts, err := utils.ParseVNTimestamp(row.Cell(ColAuditTS)); err == nil {
		e.Timestamp = ts
	}
	if err := json.Unmarshal([]byte(row.Cell(ColAuditDetails)), &e.Details); err != nil {
		e.Details = nil
	}
	return e
}
