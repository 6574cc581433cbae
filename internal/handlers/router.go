package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/xelth-com/lotscan/internal/apperr"
	"github.com/xelth-com/lotscan/internal/buildinfo"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/middleware"
	"github.com/xelth-com/lotscan/internal/positions"
	"github.com/xelth-com/lotscan/internal/websocket"
)

// Deps are the services the HTTP layer calls into
type Deps struct {
	Store      ledger.Store
	Catalog    *catalog.Catalog
	Exports    *export.Service
	Reconciler *positions.Reconciler
	Hub        *websocket.Hub // optional, /ws is not mounted without it
	JWTSecret  string
	LabelQRURL string // prefix for lot label QR payloads, e.g. https://wms.example/qr/
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	deps     Deps
	validate *validator.Validate
	log      *logrus.Logger
}

// routeWords are the fixed path segments matched case-insensitively
var routeWords = []string{
	"health", "api", "conversion", "preview", "lots", "export", "lines", "labels",
	"products", "scanner", "sync", "occupied", "locations", "audit", "ws",
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		deps:     deps,
		validate: validator.New(),
		log:      logger.GetLogger("app"),
	}
	r.Use(middleware.Identity(deps.JWTSecret))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/conversion/preview", r.previewConversion).Methods("POST")
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/audit", r.listAudit).Methods("GET")

	// Lots
	api.HandleFunc("/lots/export", r.exportLot).Methods("POST")
	api.HandleFunc("/lots/labels", r.lotLabels).Methods("POST")
	api.HandleFunc("/lots/{code}/lines", r.lotLines).Methods("GET")

	// Scanner
	scanner := api.PathPrefix("/scanner").Subrouter()
	scanner.HandleFunc("/sync", r.syncAssignments).Methods("POST")
	scanner.HandleFunc("/occupied", r.occupied).Methods("GET")
	scanner.HandleFunc("/locations", r.listLocations).Methods("GET")
	scanner.HandleFunc("/locations/labels", r.locationLabels).Methods("GET")

	if deps.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(deps.Hub, w, req)
		})
	}

	return r
}

// Handler returns the router behind the middlewares that must run before routing
func (r *Router) Handler() http.Handler {
	var h http.Handler = r.Router
	h = middleware.CaseInsensitiveRoutes(routeWords...)(h)
	h = middleware.RequestLogger(r.log)(h)
	return h
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"build":  buildinfo.Current(),
	})
}

// decode reads a JSON body and runs struct validation on it
func (r *Router) decode(req *http.Request, dst interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		return apperr.Validation("INVALID_BODY", "Invalid request body")
	}
	if err := r.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation("INVALID_BODY", verrs[0].Error()).With("field", verrs[0].Field())
		}
		return apperr.Validation("INVALID_BODY", err.Error())
	}
	return nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// statusOf maps an error kind to its HTTP status
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError renders a coded error with its details; uncoded errors are 500
func (r *Router) respondAppError(w http.ResponseWriter, err error, fallback string) {
	e, ok := apperr.As(err)
	if !ok {
		r.log.WithError(err).Error(fallback)
		respondError(w, http.StatusInternalServerError, fallback, err.Error())
		return
	}
	status := statusOf(e.Kind)
	if status == http.StatusInternalServerError {
		r.log.WithError(err).WithField("code", e.Code).Error("request failed")
	}

	body := make(map[string]interface{}, len(e.Details)+2)
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Code
	body["message"] = e.Message
	respondJSON(w, status, body)
}
