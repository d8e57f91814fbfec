package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"medstore/m/domain"
	"medstore/m/internal/billing"
	"medstore/m/internal/inventory"
	"medstore/m/internal/ledger"
	"medstore/m/internal/metrics"
	"medstore/m/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Deps are the collaborators the HTTP layer forwards to.
type Deps struct {
	Inventory      *inventory.Inventory
	Billing        *billing.Service
	Ledger         *ledger.Ledger
	Reports        *reports.Projection
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	ExpiryWarnDays int
	CORSOrigins    []string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	inv      *inventory.Inventory
	billing  *billing.Service
	ledger   *ledger.Ledger
	reports  *reports.Projection
	metrics  *metrics.Metrics
	log      *slog.Logger
	warnDays int
	origins  []string
	now      func() time.Time
}

// New constructs a Handler.
func New(d Deps) *Handler {
	h := &Handler{
		inv:      d.Inventory,
		billing:  d.Billing,
		ledger:   d.Ledger,
		reports:  d.Reports,
		metrics:  d.Metrics,
		log:      d.Logger,
		warnDays: d.ExpiryWarnDays,
		origins:  d.CORSOrigins,
		now:      d.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.warnDays <= 0 {
		h.warnDays = 90
	}
	if len(h.origins) == 0 {
		h.origins = []string{"*"}
	}
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Post("/", h.addMedicine)
		r.Get("/search", h.searchMedicines)
		r.Get("/export", h.exportStock)
		r.Get("/{code}", h.getMedicine)
		r.Post("/{code}/stock", h.restock)
	})

	r.Get("/inventory/expiry-alert", h.expiryAlerts)

	r.Post("/bills", h.createBill)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", h.salesReport)
		r.Get("/sales/daily", h.dailySales)
		r.Get("/sales/monthly", h.monthlySales)
		r.Get("/sales/export", h.exportSales)
		r.Get("/invoices", h.invoices)
	})

	r.Post("/admin/reload", h.reload)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.inv.Quarantined(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "quarantined", "error": err.Error()})
		return
	}
	if err := h.inv.Consistent(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "inconsistent", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "medicines": h.inv.Len()})
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	report, err := h.inv.Reload()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Helpers

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuarantined):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCriticalConsistency), errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "status", status, "err", err)
	}
	respondError(w, status, err.Error())
}

func pathCode(r *http.Request) (int, error) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil || code <= 0 {
		return 0, errors.New("invalid medicine code")
	}
	return code, nil
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func trimmedQuery(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
