package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/xelth-com/lotscan/internal/config"
)

// fakeSheets serves the handful of Sheets v4 endpoints SheetsStore uses
type fakeSheets struct {
	mu        sync.Mutex
	tabs      map[string][][]interface{}
	ids       map[string]int64
	batchBody string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1")
	switch {
	case path == "" && r.Method == http.MethodGet:
		var out sheets.Spreadsheet
		for title, id := range f.ids {
			out.Sheets = append(out.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title, SheetId: id}})
		}
		writeJSON(w, &out)

	case path == ":batchUpdate":
		body, _ := io.ReadAll(r.Body)
		f.batchBody = string(body)
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			rng := rq.DeleteDimension.Range
			for title, id := range f.ids {
				if id == rng.SheetId {
					rows := f.tabs[title]
					f.tabs[title] = append(rows[:rng.StartIndex], rows[rng.EndIndex:]...)
				}
			}
		}
		writeJSON(w, &sheets.BatchUpdateSpreadsheetResponse{})

	case strings.HasPrefix(path, "/values/") && strings.HasSuffix(path, ":append"):
		rng := strings.TrimSuffix(strings.TrimPrefix(path, "/values/"), ":append")
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		tab := tabOf(rng)
		f.tabs[tab] = append(f.tabs[tab], vr.Values...)
		writeJSON(w, &sheets.AppendValuesResponse{})

	case strings.HasPrefix(path, "/values/") && r.Method == http.MethodPut:
		rng := strings.TrimPrefix(path, "/values/")
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		tab := tabOf(rng)
		cell := rng[strings.Index(rng, "!")+1:]
		col := int(cell[0] - 'A')
		rowNum, _ := strconv.Atoi(cell[1:])
		row := f.tabs[tab][rowNum-1]
		for len(row) <= col {
			row = append(row, "")
		}
		row[col] = vr.Values[0][0]
		f.tabs[tab][rowNum-1] = row
		writeJSON(w, &sheets.UpdateValuesResponse{})

	case strings.HasPrefix(path, "/values/") && r.Method == http.MethodGet:
		rng := strings.TrimPrefix(path, "/values/")
		writeJSON(w, &sheets.ValueRange{Range: rng, MajorDimension: "ROWS", Values: f.tabs[tabOf(rng)]})

	default:
		http.NotFound(w, r)
	}
}

func tabOf(rng string) string {
	if i := strings.Index(rng, "!"); i >= 0 {
		return rng[:i]
	}
	return rng
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeSheetsStore(t *testing.T) (*SheetsStore, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{
		tabs: map[string][][]interface{}{
			"lot": {
				{"Lot", "Code"},
				{"L1", "P1", "Tôm", "", "", "", "", "", "", "", 17.5},
				{"L2", "P2"},
				{"L1", "P3"},
			},
		},
		ids: map[string]int64{"lot": 0, "lot_pos": 7},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewSheetsStore(context.Background(),
		config.GoogleConfig{SheetID: "sheet-1"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store, fake
}

func TestSheetsStoreReadSkipsHeader(t *testing.T) {
	store, _ := newFakeSheetsStore(t)

	rows, err := store.ReadRows(context.Background(), LotTable)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "L1", rows[0].Cell(0))
	assert.Equal(t, "17.5", rows[0].Cell(10))
	assert.Equal(t, "P3", rows[2].Cell(1))
}

func TestSheetsStoreDeleteRowsBottomUp(t *testing.T) {
	store, fake := newFakeSheetsStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteRows(ctx, LotTable, []int{0, 2}))

	rows, err := store.ReadRows(ctx, LotTable)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "L2", rows[0].Cell(0))

	// sheet id 0 must be sent explicitly or the API targets nothing
	assert.Contains(t, fake.batchBody, `"sheetId":0`)
	assert.Less(t, strings.Index(fake.batchBody, `"startIndex":3`), strings.Index(fake.batchBody, `"startIndex":1`))
}

func TestSheetsStoreAppendAndUpdate(t *testing.T) {
	store, fake := newFakeSheetsStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendRows(ctx, LotTable, []Row{{"L9", "P9"}}))
	require.NoError(t, store.UpdateCell(ctx, LotTable, 1, 14, "A-K1D1T1.PL1"))

	assert.Len(t, fake.tabs["lot"], 5)
	rows, err := store.ReadRows(ctx, LotTable)
	require.NoError(t, err)
	assert.Equal(t, "A-K1D1T1.PL1", rows[1].Cell(14))
	assert.Equal(t, "L9", rows[3].Cell(0))
}

func TestSheetsStoreUnknownTab(t *testing.T) {
	store, _ := newFakeSheetsStore(t)
	err := store.DeleteRows(context.Background(), DeletedLotTable, []int{0})
	assert.ErrorContains(t, err, "sheet not found")
}

func TestNewSheetsStoreRequiresCredentials(t *testing.T) {
	_, err := NewSheetsStore(context.Background(), config.GoogleConfig{SheetID: "x"})
	assert.Error(t, err)

	_, err = NewSheetsStore(context.Background(), config.GoogleConfig{})
	assert.Error(t, err)
}
