package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/handlers"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/positions"
	"github.com/xelth-com/lotscan/internal/utils"
)

func init() { logger.Discard("app") }

func lotRow(lot, product, qty, unit, pos string) ledger.Row {
	return models.LotLine{
		LotCode:     lot,
		ProductCode: product,
		Quantity:    decimal.RequireFromString(qty),
		Unit:        unit,
		Position:    pos,
	}.ToRow()
}

func newServer(t *testing.T) (*httptest.Server, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.Seed(ledger.ProductTable, ledger.Row{"P001", "Tôm", "Seafood", "cái", "thùng", "", "12"})
	store.Seed(ledger.LotTable,
		lotRow("LOT-1", "P001", "5", "thùng", ""),
		lotRow("LOT-2", "P001", "2", "thùng", ""),
		lotRow("LOT-9", "P001", "1", "thùng", "A-K1D1T1.PL2"),
	)
	store.Seed(ledger.LotPosTable, ledger.Row{"LOT-9", "A-K1D1T1.PL2"})

	cat := catalog.New(store)
	router := handlers.NewRouter(handlers.Deps{
		Store:      store,
		Catalog:    cat,
		Exports:    export.NewService(store, cat, nil, nil),
		Reconciler: positions.NewReconciler(store, nil, nil),
	})
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestSyncMarksAcceptedItems(t *testing.T) {
	srv, store := newServer(t)
	q, _ := newQueue(t)
	q.Scan("LOT-1")
	q.Scan("LOT-2")
	q.Scan("LOT-3") // no position, stays out of the batch
	q.SetPosition("LOT-1", "A-K1D1T1.PL1")
	q.SetPosition("LOT-2", "A-K1D1T1.PL2") // held by LOT-9

	c := NewClient(srv.URL, "", srv.Client())
	report, err := c.Sync(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Synced)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "LOT-2", report.Conflicts[0].LotCode)
	assert.Equal(t, "LOT-9", report.Conflicts[0].CurrentOccupant)
	assert.Empty(t, report.Failed)

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "LOT-2", pending[0].ID)

	lines, _ := models.LinesOf(store.Rows(ledger.LotTable), "LOT-1")
	assert.Equal(t, "A-K1D1T1.PL1", lines[0].Position)
}

func TestSyncNothingPending(t *testing.T) {
	srv, _ := newServer(t)
	q, _ := newQueue(t)
	q.Scan("LOT-1")

	_, err := NewClient(srv.URL, "", srv.Client()).Sync(context.Background(), q)
	assert.ErrorIs(t, err, ErrNothingToSync)
}

func TestSyncOfflineKeepsQueue(t *testing.T) {
	srv, _ := newServer(t)
	url := srv.URL
	srv.Close()

	q, _ := newQueue(t)
	q.Scan("LOT-1")
	q.SetPosition("LOT-1", "A-K1D1T1.PL1")

	_, err := NewClient(url, "", nil).Sync(context.Background(), q)
	require.Error(t, err)
	assert.Len(t, q.Pending(), 1)
}

func TestPotentialConflicts(t *testing.T) {
	srv, _ := newServer(t)
	c := NewClient(srv.URL, "", srv.Client())

	occ, err := c.Occupied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "LOT-9", occ.Occupied["A-K1D1T1.PL2"])

	got := c.PotentialConflicts([]Item{
		{ID: "LOT-1", Position: "a-k1d1t1.pl2"},
		{ID: "LOT-9", Position: "A-K1D1T1.PL2"},
		{ID: "LOT-2", Position: "A-K1D1T1.PL5"},
	})
	assert.Equal(t, map[string]string{"LOT-1": "LOT-9"}, got)
}

func TestExportThroughClient(t *testing.T) {
	srv, store := newServer(t)
	c := NewClient(srv.URL, "", srv.Client())
	ctx := context.Background()

	lines, err := c.LotLines(ctx, "LOT-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, []string{"cái", "thùng"}, lines[0].Units)

	res, err := c.Export(ctx, ExportRequest{
		LotCode: "LOT-1",
		Mode:    export.ModePartial,
		Reason:  "Xuất bán",
		Items:   []ExportItem{{LineIndex: 0, Quantity: utils.FlexDecimal{Decimal: decimal.NewFromInt(7)}, Unit: "cái"}},
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.DeletedRows)

	left, _ := models.LinesOf(store.Rows(ledger.LotTable), "LOT-1")
	require.Len(t, left, 2)
	assert.True(t, left[0].Quantity.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "cái", left[1].Unit)
	assert.True(t, left[1].Quantity.Equal(decimal.NewFromInt(5)))
}

func TestExportErrorCarriesCode(t *testing.T) {
	srv, _ := newServer(t)
	c := NewClient(srv.URL, "", srv.Client())

	_, err := c.Export(context.Background(), ExportRequest{
		LotCode: "LOT-2",
		Mode:    export.ModePartial,
		Reason:  "Xuất bán",
		Items:   []ExportItem{{LineIndex: 0, Quantity: utils.FlexDecimal{Decimal: decimal.NewFromInt(6)}, Unit: "thùng"}},
	})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.Equal(t, apperr.KindBusinessRule, e.Kind)
	assert.Equal(t, "2", e.Details["available"])

	_, err = c.Export(context.Background(), ExportRequest{LotCode: "LOT-404", Reason: "x"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDecodeErrorPlainBody(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("upstream down"))
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "HTTP_502", e.Code)
	assert.Equal(t, "upstream down", e.Message)
}
