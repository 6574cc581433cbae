package ledger

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/logger"
)

// SheetsStore keeps the ledger in a Google spreadsheet, one tab per table
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *logrus.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab title -> numeric sheet id, needed for row deletes
}

// NewSheetsStore authenticates with a service account and opens the spreadsheet
func NewSheetsStore(ctx context.Context, cfg config.GoogleConfig, opts ...option.ClientOption) (*SheetsStore, error) {
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}

	if len(opts) == 0 {
		switch {
		case cfg.CredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		case cfg.ClientEmail != "" && cfg.PrivateKey != "":
			jwtCfg := &jwt.Config{
				Email:      cfg.ClientEmail,
				PrivateKey: []byte(cfg.PrivateKeyPEM()),
				Scopes:     []string{sheets.SpreadsheetsScope},
				TokenURL:   google.JWTTokenURL,
			}
			opts = append(opts, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
		default:
			return nil, fmt.Errorf("missing GOOGLE_SERVICE_ACCOUNT_EMAIL/KEY")
		}
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: cfg.SheetID,
		log:           logger.GetLogger("ledger"),
		sheetIDs:      make(map[string]int64),
	}, nil
}

func headerOffset(table Table) int {
	if table.Header {
		return 1
	}
	return 0
}

// a1Row converts a data-row index to the 1-based sheet row number
func a1Row(table Table, row int) int {
	return row + headerOffset(table) + 1
}

func fullRange(table Table) string {
	return fmt.Sprintf("%s!A1:%s", table.Name, ColumnLetter(table.Columns-1))
}

// ReadRows implements Store
func (s *SheetsStore) ReadRows(ctx context.Context, table Table) ([]Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, fullRange(table)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table.Name, err)
	}

	values := resp.Values
	if table.Header && len(values) > 0 {
		values = values[1:]
	}

	rows := make([]Row, len(values))
	for i, raw := range values {
		row := make(Row, len(raw))
		for j, v := range raw {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	s.log.WithFields(logrus.Fields{"table": table.Name, "rows": len(rows)}).Debug("ledger read")
	return rows, nil
}

// AppendRows implements Store
func (s *SheetsStore) AppendRows(ctx context.Context, table Table, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: toValues(rows)}
	rng := fmt.Sprintf("%s!A:%s", table.Name, ColumnLetter(table.Columns-1))

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", table.Name, err)
	}
	s.log.WithFields(logrus.Fields{"table": table.Name, "rows": len(rows)}).Debug("ledger append")
	return nil
}

// DeleteRows implements Store. All deletes go out in one batchUpdate,
// bottom-up, so the spreadsheet applies them as a single call.
func (s *SheetsStore) DeleteRows(ctx context.Context, table Table, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	sheetID, err := s.sheetID(ctx, table.Name)
	if err != nil {
		return err
	}

	var requests []*sheets.Request
	for _, idx := range descending(indices) {
		if idx < 0 {
			return fmt.Errorf("%s: negative row index %d", table.Name, idx)
		}
		start := int64(idx + headerOffset(table))
		requests = append(requests, &sheets.Request{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   start + 1,
					// sheetId 0 and startIndex 0 are meaningful and must not be dropped
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows from %s: %w", table.Name, err)
	}
	s.log.WithFields(logrus.Fields{"table": table.Name, "rows": len(requests)}).Debug("ledger delete")
	return nil
}

// UpdateCell implements Store
func (s *SheetsStore) UpdateCell(ctx context.Context, table Table, row, col int, value string) error {
	if row < 0 || col < 0 {
		return fmt.Errorf("%s: invalid cell (%d,%d)", table.Name, row, col)
	}
	rng := fmt.Sprintf("%s!%s%d", table.Name, ColumnLetter(col), a1Row(table, row))
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}

	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (s *SheetsStore) sheetID(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[title]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok = s.sheetIDs[title]
	if !ok {
		return 0, fmt.Errorf("sheet not found: %s", title)
	}
	return id, nil
}

func toValues(rows []Row) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		cells := make([]interface{}, len(r))
		for j, c := range r {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
