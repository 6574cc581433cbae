package handlers

import (
	"net/http"
	"strconv"

	"github.com/xelth-com/lotscan/internal/audit"
)

const defaultAuditLimit = 100

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	includeDisabled := isTrue(req.URL.Query().Get("includeDisabled"))

	products, err := r.deps.Catalog.List(req.Context(), includeDisabled)
	if err != nil {
		r.respondAppError(w, err, "READ_FAILED")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(products),
		"products": products,
	})
}

// listAudit returns the newest audit entries, ?limit=N (default 100)
func (r *Router) listAudit(w http.ResponseWriter, req *http.Request) {
	limit := defaultAuditLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := audit.Recent(req.Context(), r.deps.Store, limit)
	if err != nil {
		r.respondAppError(w, err, "READ_FAILED")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
