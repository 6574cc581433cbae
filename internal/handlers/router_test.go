package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/positions"
)

func init() { logger.Discard("app") }

func lotRow(lot, product, qty, unit, pos string) ledger.Row {
	return models.LotLine{
		LotCode:     lot,
		ProductCode: product,
		ProductName: "Tôm",
		Quantity:    decimal.RequireFromString(qty),
		Unit:        unit,
		Position:    pos,
	}.ToRow()
}

func newTestRouter(t *testing.T) (http.Handler, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.Seed(ledger.ProductTable,
		ledger.Row{"P001", "Tôm", "Seafood", "cái", "thùng", "", "12"},
		ledger.Row{"P002", "Mực", "Seafood", "kg", "", "", "", "", "", "", "", "", "", "", "", "P002"},
	)
	store.Seed(ledger.LotTable,
		lotRow("LOT-1", "P001", "5", "thùng", "A-K1D1T1.PL1"),
		lotRow("LOT-2", "P001", "3", "thùng", ""),
	)
	store.Seed(ledger.LotPosTable, ledger.Row{"LOT-1", "A-K1D1T1.PL1"})

	cat := catalog.New(store)
	r := NewRouter(Deps{
		Store:      store,
		Catalog:    cat,
		Exports:    export.NewService(store, cat, nil, nil),
		Reconciler: positions.NewReconciler(store, nil, nil),
	})
	return r.Handler(), store
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestPreviewConversion(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/conversion/preview", map[string]interface{}{
		"productCode": "P001",
		"currentQty":  5,
		"currentUnit": "thùng",
		"exportQty":   "7",
		"exportUnit":  "Cái",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "1", body["consumed"])
	assert.Equal(t, "5", body["remainder"])
	assert.Equal(t, true, body["isValid"])

	rec = do(t, h, http.MethodPost, "/api/conversion/preview", map[string]interface{}{
		"productCode": "P001",
		"currentQty":  5,
		"currentUnit": "thùng",
		"exportQty":   1,
		"exportUnit":  "pallet",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "UNSUPPORTED_UNIT", decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/api/conversion/preview", map[string]interface{}{"exportQty": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"missing lot", map[string]interface{}{"reason": "x"}, http.StatusBadRequest, export.CodeLotCodeRequired},
		{"missing reason", map[string]interface{}{"lotCode": "LOT-1"}, http.StatusBadRequest, export.CodeReasonRequired},
		{"empty partial", map[string]interface{}{"lotCode": "LOT-1", "reason": "x", "mode": "PARTIAL"}, http.StatusBadRequest, export.CodeNoItems},
		{"unknown lot", map[string]interface{}{"lotCode": "LOT-404", "reason": "x"}, http.StatusNotFound, export.CodeLotNotFound},
		{"too much", map[string]interface{}{
			"lotCode": "LOT-2", "reason": "x", "mode": "PARTIAL",
			"items": []map[string]interface{}{{"lineIndex": 0, "quantity": 4, "unit": "thùng"}},
		}, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestRouter(t)
			rec := do(t, h, http.MethodPost, "/api/lots/export", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody(t, rec)["error"])
			assert.Empty(t, store.Rows(ledger.DeletedLotTable))
		})
	}
}

func TestExportInsufficientCarriesQuantities(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/lots/export", map[string]interface{}{
		"lotCode": "LOT-2", "reason": "x", "mode": "PARTIAL",
		"items": []map[string]interface{}{{"lineIndex": 0, "quantity": "4", "unit": "thùng"}},
	})
	body := decodeBody(t, rec)
	assert.Equal(t, "4", body["requested"])
	assert.Equal(t, "3", body["available"])
}

func TestExportFull(t *testing.T) {
	h, store := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/lots/export", map[string]interface{}{"lotCode": "LOT-1", "reason": "Hủy"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["deletedRows"])

	lines, _ := models.LinesOf(store.Rows(ledger.LotTable), "LOT-1")
	assert.Empty(t, lines)
	assert.Len(t, store.Rows(ledger.DeletedLotTable), 1)
}

func TestLotLines(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/lots/LOT-1/lines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view LotView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "A-K1D1T1.PL1", view.Header.Position)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, []string{"cái", "thùng"}, view.Lines[0].Units)

	rec = do(t, h, http.MethodGet, "/api/lots/LOT-404/lines", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/scanner/sync", map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_ITEMS_TO_SYNC", decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/API/Scanner/Sync", map[string]interface{}{
		"items": []map[string]string{
			{"id": "LOT-2", "position": "a-k1d1t1.pl1"},
			{"id": "LOT-2", "position": "A-K1D1T1.PL2"},
			{"id": "", "position": "A-K1D1T1.PL3"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res positions.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailCount)
	assert.True(t, res.Results[0].Conflict)
	assert.Equal(t, "LOT-1", res.Results[0].CurrentOccupant)
	assert.True(t, res.Results[1].Success)
	assert.Equal(t, positions.CodeMissingData, res.Results[2].Error)
}

func TestOccupied(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/scanner/occupied", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var occ positions.Occupancy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &occ))
	assert.Equal(t, map[string]string{"A-K1D1T1.PL1": "LOT-1"}, occ.Occupied)
}

func TestProducts(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/api/products?includeDisabled=1", nil)
	assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
}

func TestLocations(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/scanner/locations?warehouse=1&zone=s", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(20), decodeBody(t, rec)["count"])

	rec = do(t, h, http.MethodGet, "/api/scanner/locations?warehouse=9", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocationLabels(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/scanner/locations/labels?warehouse=2&zone=S", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestAuditListing(t *testing.T) {
	h, store := newTestRouter(t)
	store.Seed(ledger.AuditTable,
		models.AuditEntry{Username: "an", Path: "/a"}.ToRow(),
		models.AuditEntry{Username: "binh", Path: "/b"}.ToRow(),
	)

	rec := do(t, h, http.MethodGet, "/api/audit?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	entries := body["entries"].([]interface{})
	assert.Equal(t, "binh", entries[0].(map[string]interface{})["username"])

	rec = do(t, h, http.MethodGet, "/api/audit?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
