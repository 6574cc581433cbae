// Package scanner is the handheld side of lot placement: a queue of scanned
// lots that survives restarts and going offline, and a client that replays
// it against the server when the network is back.
package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotQueued is returned for lots that are not in the queue
var ErrNotQueued = errors.New("lot not in queue")

// ErrLocked is returned when editing an item that was already synced
var ErrLocked = errors.New("item already synced, scan it again to edit")

// Item is one scanned lot waiting for, or done with, a sync
type Item struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix ms of the last scan
	Position  string `json:"position"`
	Synced    bool   `json:"synced"`
}

// Queue holds scanned items newest first and writes every change to a JSON
// file. An empty path keeps the queue in memory only.
type Queue struct {
	path string

	mu    sync.Mutex
	items []Item
	now   func() time.Time
}

// OpenQueue loads the queue at path. A missing file is an empty queue; a
// corrupt one is set aside as path.bad and replaced by an empty queue.
func OpenQueue(path string) (*Queue, error) {
	q := &Queue{path: path, now: time.Now}
	if path == "" {
		return q, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	if err := json.Unmarshal(data, &q.items); err != nil {
		_ = os.Rename(path, path+".bad")
		q.items = nil
	}
	return q, nil
}

// ParseScan extracts the lot code from what the camera read: either a bare
// code or a label URL like https://host/qr/LOT-001
func ParseScan(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "/qr/") {
		return text
	}
	u, err := url.Parse(text)
	if err != nil {
		return text
	}
	parts := strings.Split(u.Path, "/")
	for i, p := range parts {
		if p == "qr" && i+1 < len(parts) && parts[i+1] != "" {
			if code, err := url.PathUnescape(parts[i+1]); err == nil {
				return strings.TrimSpace(code)
			}
			return strings.TrimSpace(parts[i+1])
		}
	}
	return text
}

// Scan records a scanned lot. A re-scan moves the lot to the top with a fresh
// timestamp and unlocks it for editing, keeping any position already typed.
func (q *Queue) Scan(text string) (Item, error) {
	id := ParseScan(text)
	if id == "" {
		return Item{}, errors.New("empty scan")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{ID: id, Timestamp: q.now().UnixMilli()}
	if i := q.find(id); i >= 0 {
		item.Position = q.items[i].Position
		q.items = append(q.items[:i], q.items[i+1:]...)
	}
	q.items = append([]Item{item}, q.items...)
	return item, q.save()
}

// SetPosition sets the slot of an unsynced item
func (q *Queue) SetPosition(id, position string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.find(strings.TrimSpace(id))
	if i < 0 {
		return ErrNotQueued
	}
	if q.items[i].Synced {
		return ErrLocked
	}
	q.items[i].Position = strings.TrimSpace(position)
	return q.save()
}

// Remove drops an item whatever its state
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.find(strings.TrimSpace(id))
	if i < 0 {
		return ErrNotQueued
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return q.save()
}

// Items returns a copy of the queue, newest first
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// Pending returns the unsynced items that have a position, oldest first, so
// the server sees scans in the order they happened
func (q *Queue) Pending() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Item
	for _, it := range q.items {
		if !it.Synced && strings.TrimSpace(it.Position) != "" {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// MarkSynced flags the given lots as synced and returns how many matched
func (q *Queue) MarkSynced(ids ...string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	n := 0
	for i := range q.items {
		if set[q.items[i].ID] && !q.items[i].Synced {
			q.items[i].Synced = true
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, q.save()
}

// PurgeSynced removes synced items and returns how many went
func (q *Queue) PurgeSynced() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, it := range q.items {
		if !it.Synced {
			kept = append(kept, it)
		}
	}
	n := len(q.items) - len(kept)
	q.items = kept
	if n == 0 {
		return 0, nil
	}
	return n, q.save()
}

func (q *Queue) find(id string) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// save writes the queue through a temp file so a crash never leaves half a file.
// Caller holds mu.
func (q *Queue) save() error {
	if q.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(q.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if dir := filepath.Dir(q.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create queue dir: %w", err)
		}
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	return nil
}
