package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/positions"
	"github.com/xelth-com/lotscan/internal/utils"
)

// ErrNothingToSync means no unsynced item has a position yet
var ErrNothingToSync = errors.New("nothing to sync: give the scanned lots a position first")

// NewHTTPClient returns the client used against the server. Scanners sit on
// flaky warehouse Wi-Fi, so dials fail fast and requests are bounded.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext:     dialer.DialContext,
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// Client talks to the lot scanner API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger

	mu       sync.Mutex
	occupied map[string]string // position -> lot, from the last Occupied call
}

// NewClient creates a client for the server at baseURL. token, when set, is
// sent as a Bearer token so the server knows who is scanning.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     httpClient,
		log:      logger.GetLogger("app"),
		occupied: make(map[string]string),
	}
}

// SyncReport is what a sync did to the queue
type SyncReport struct {
	Sent      int
	Synced    int
	Conflicts []positions.ItemResult
	Failed    []positions.ItemResult // failures other than conflicts
}

// Sync sends the pending items, oldest first, and marks those the server
// accepted. When the request itself fails nothing is marked and every item
// stays pending for the next try.
func (c *Client) Sync(ctx context.Context, q *Queue) (*SyncReport, error) {
	pending := q.Pending()
	if len(pending) == 0 {
		return nil, ErrNothingToSync
	}

	body := struct {
		Items []positions.Item `json:"items"`
	}{Items: make([]positions.Item, len(pending))}
	for i, it := range pending {
		body.Items[i] = positions.Item{ID: it.ID, Position: it.Position}
	}

	var res positions.BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/scanner/sync", body, &res); err != nil {
		return nil, fmt.Errorf("sync %d items: %w", len(pending), err)
	}

	report := &SyncReport{Sent: len(pending)}
	var ok []string
	for _, r := range res.Results {
		switch {
		case r.Success:
			ok = append(ok, r.LotCode)
		case r.Conflict:
			report.Conflicts = append(report.Conflicts, r)
		default:
			report.Failed = append(report.Failed, r)
		}
	}
	n, err := q.MarkSynced(ok...)
	report.Synced = n
	if err != nil {
		return report, fmt.Errorf("mark synced: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"sent":      report.Sent,
		"synced":    report.Synced,
		"conflicts": len(report.Conflicts),
		"failed":    len(report.Failed),
	}).Info("queue synced")
	return report, nil
}

// Occupied fetches the slot map and keeps it for PotentialConflicts
func (c *Client) Occupied(ctx context.Context) (*positions.Occupancy, error) {
	var occ positions.Occupancy
	if err := c.do(ctx, http.MethodGet, "/api/scanner/occupied", nil, &occ); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.occupied = make(map[string]string, len(occ.Occupied))
	for pos, lot := range occ.Occupied {
		c.occupied[strings.ToUpper(pos)] = lot
	}
	c.mu.Unlock()
	return &occ, nil
}

// PotentialConflicts checks items against the last fetched slot map. The map
// may be stale; the server has the final word.
func (c *Client) PotentialConflicts(items []Item) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string)
	for _, it := range items {
		lot, ok := c.occupied[strings.ToUpper(strings.TrimSpace(it.Position))]
		if ok && lot != it.ID {
			out[it.ID] = lot
		}
	}
	return out
}

// ExportItem takes an amount out of one line of a lot
type ExportItem struct {
	LineIndex int               `json:"lineIndex"`
	Quantity  utils.FlexDecimal `json:"quantity"`
	Unit      string            `json:"unit,omitempty"`
}

// ExportRequest mirrors the export endpoint body
type ExportRequest struct {
	LotCode   string       `json:"lotCode"`
	Mode      string       `json:"mode"`
	Reason    string       `json:"reason"`
	DeletedBy string       `json:"deletedBy,omitempty"`
	Items     []ExportItem `json:"items,omitempty"`
}

// Export submits an export. Export is not queued offline: stock must be
// checked against the ledger at the moment it leaves.
func (c *Client) Export(ctx context.Context, req ExportRequest) (*export.Result, error) {
	var res export.Result
	if err := c.do(ctx, http.MethodPost, "/api/lots/export", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LotLine is one line of a lot as the server lists it
type LotLine struct {
	Index       int               `json:"index"`
	ProductCode string            `json:"productCode"`
	ProductName string            `json:"productName"`
	Quantity    utils.FlexDecimal `json:"quantity"`
	Unit        string            `json:"unit"`
	Units       []string          `json:"units"`
}

// LotLines fetches the lines of a lot, the indices Export selections refer to
func (c *Client) LotLines(ctx context.Context, lotCode string) ([]LotLine, error) {
	var res struct {
		Lines []LotLine `json:"lines"`
	}
	path := "/api/lots/" + url.PathEscape(lotCode) + "/lines"
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Lines, nil
}

// do runs one JSON round trip. Error responses come back as *apperr.Error
// carrying the server's code and details.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return apperr.New(kindOf(status), fmt.Sprintf("HTTP_%d", status), strings.TrimSpace(string(data)))
	}

	code, _ := body["error"].(string)
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", status)
	}
	msg, _ := body["message"].(string)
	e := apperr.New(kindOf(status), code, msg)
	for k, v := range body {
		if k != "error" && k != "message" {
			e.With(k, v)
		}
	}
	return e
}

func kindOf(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation
	case http.StatusNotFound:
		return apperr.KindNotFound
	case http.StatusConflict:
		return apperr.KindConflict
	case http.StatusUnprocessableEntity:
		return apperr.KindBusinessRule
	default:
		return apperr.KindInternal
	}
}
