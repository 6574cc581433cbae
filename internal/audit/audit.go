// Package audit appends audit rows in the background. Recording never blocks
// the request and a failed write is logged and forgotten.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/models"
	"github.com/xelth-com/lotscan/internal/utils"
)

// Recorder accepts audit entries
type Recorder interface {
	Record(entry models.AuditEntry)
}

// Discard is a Recorder that drops everything
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(models.AuditEntry) {}

const writeTimeout = 15 * time.Second

// Sink writes entries to the audit table from a single worker
type Sink struct {
	store ledger.Store
	log   *logrus.Logger
	queue chan models.AuditEntry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewSink starts the worker. buffer bounds how many entries may wait.
func NewSink(store ledger.Store, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 1
	}
	s := &Sink{
		store: store,
		log:   logger.GetLogger("audit"),
		queue: make(chan models.AuditEntry, buffer),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sink) run() {
	defer s.wg.Done()
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.store.AppendRows(ctx, ledger.AuditTable, []ledger.Row{entry.ToRow()})
		cancel()
		if err != nil {
			s.log.WithError(err).WithField("path", entry.Path).Error("audit append failed")
			continue
		}
		s.log.WithFields(logrus.Fields{"user": entry.Username, "path": entry.Path}).Debug("audit recorded")
	}
}

// Record queues an entry. When the queue is full or the sink is closed the
// entry is dropped.
func (s *Sink) Record(entry models.AuditEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.WithField("path", entry.Path).Warn("audit sink closed, entry dropped")
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.log.WithField("path", entry.Path).Warn("audit queue full, entry dropped")
	}
}

// Close stops accepting entries and waits for queued ones to be written
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	s.wg.Wait()
}

// Origin describes the request an entry is recorded for
type Origin struct {
	Method    string
	Path      string
	Query     string
	IP        string
	UserAgent string
}

type originKey struct{}

// WithOrigin stores the request origin on the context
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the request origin stored on ctx
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

// NewEntry builds an entry for the acting worker and request found on ctx
func NewEntry(ctx context.Context, at time.Time, details map[string]interface{}) models.AuditEntry {
	id := utils.IdentityFrom(ctx)
	o := OriginFrom(ctx)
	return models.AuditEntry{
		Timestamp: at,
		Username:  id.Username,
		Name:      id.Name,
		Method:    o.Method,
		Path:      o.Path,
		Query:     o.Query,
		IP:        o.IP,
		UserAgent: o.UserAgent,
		Details:   details,
	}
}

// Recent returns up to limit entries, newest first
func Recent(ctx context.Context, store ledger.Store, limit int) ([]models.AuditEntry, error) {
	rows, err := store.ReadRows(ctx, ledger.AuditTable)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	out := make([]models.AuditEntry, 0, limit)
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, models.AuditEntryFromRow(rows[i]))
	}
	return out, nil
}
