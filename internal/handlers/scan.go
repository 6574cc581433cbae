package handlers

import (
	"net/http"
	"strconv"

	"github.com/xelth-com/lotscan/internal/locations"
	"github.com/xelth-com/lotscan/internal/positions"
)

// SyncRequest is the scanner's queue of pending assignments
type SyncRequest struct {
	Items []positions.Item `json:"items" validate:"required,min=1"`
}

// syncAssignments applies a scanner batch. Item failures are reported per item
// in a 200 response; only an empty or unreadable batch is rejected.
func (r *Router) syncAssignments(w http.ResponseWriter, req *http.Request) {
	var body SyncRequest
	if err := r.decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "NO_ITEMS_TO_SYNC", "No items to sync")
		return
	}

	res := r.deps.Reconciler.SyncAssignments(req.Context(), body.Items)
	respondJSON(w, http.StatusOK, res)
}

func (r *Router) occupied(w http.ResponseWriter, req *http.Request) {
	occ, err := r.deps.Reconciler.Occupancy(req.Context())
	if err != nil {
		r.respondAppError(w, err, "READ_FAILED")
		return
	}
	respondJSON(w, http.StatusOK, occ)
}

// slotFilter reads ?warehouse=N&zone=A|B|S
func slotFilter(req *http.Request) ([]locations.Slot, bool) {
	q := req.URL.Query()
	slots := locations.All()

	if v := q.Get("warehouse"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil || w < 1 || w > locations.Warehouses {
			return nil, false
		}
		slots = locations.ForWarehouse(w)
	}
	if zone := q.Get("zone"); zone != "" {
		var kept []locations.Slot
		for _, s := range slots {
			if equalZone(s.Zone, zone) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return nil, false
		}
		slots = kept
	}
	return slots, true
}

func equalZone(a, b string) bool {
	return len(a) == 1 && len(b) == 1 && (a[0]|0x20) == (b[0]|0x20)
}

func (r *Router) listLocations(w http.ResponseWriter, req *http.Request) {
	slots, ok := slotFilter(req)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_FILTER", "Unknown warehouse or zone")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(slots),
		"locations": locations.Codes(slots),
	})
}
