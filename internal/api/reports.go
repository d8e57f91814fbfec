package api

import (
	"fmt"
	"net/http"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/export"
)

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Report()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if report.Lines == nil {
		report.Lines = []domain.SaleLine{}
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	day := h.now()
	if s := trimmedQuery(r, "date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
			return
		}
		day = parsed
	}
	totals, err := h.reports.Daily(r.Context(), day)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	month := h.now()
	if s := trimmedQuery(r, "month"); s != "" {
		parsed, err := time.Parse("2006-01", s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
			return
		}
		month = parsed
	}
	totals, err := h.reports.Monthly(r.Context(), month)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *Handler) invoices(w http.ResponseWriter, r *http.Request) {
	var from time.Time
	to := h.now()

	if s := trimmedQuery(r, "start_date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
		from = parsed
	}
	if s := trimmedQuery(r, "end_date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	invoices, err := h.reports.Invoices(r.Context(), from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

func (h *Handler) exportSales(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Report()
	if err != nil {
		h.respondErr(w, err)
		return
	}
	data, err := export.SalesWorkbook(report)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	name := fmt.Sprintf("sales_%s.xlsx", h.now().Format("20060102_150405"))
	respondFile(w, xlsxContentType, name, data)
}
