package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
	"medstore/m/internal/export"
)

type medicineRequest struct {
	Code            int             `json:"code"`
	Name            string          `json:"name"`
	SupplierName    string          `json:"supplier_name"`
	SupplierContact int64           `json:"supplier_contact"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	ExpiryDate      string          `json:"expiry_date"`
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.inv.List())
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.inv.Get(code)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	query := trimmedQuery(r, "query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	results := h.inv.Search(query)
	if results == nil {
		results = []domain.Medicine{}
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) addMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	expiry, err := domain.ParseExpiry(req.ExpiryDate)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	m, err := h.inv.Add(domain.Medicine{
		Code:            req.Code,
		Name:            req.Name,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		Price:           req.Price,
		Quantity:        req.Quantity,
		Expiry:          expiry,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.inv.Restock(code, payload.Delta)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) expiryAlerts(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(trimmedQuery(r, "days"))
	if days <= 0 {
		days = h.warnDays
	}
	alerts := h.inv.ExpiryScan(h.now(), days)
	if alerts == nil {
		alerts = []domain.ExpiryAlert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *Handler) exportStock(w http.ResponseWriter, r *http.Request) {
	data, err := export.StockWorkbook(h.inv.List())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	name := fmt.Sprintf("stock_%s.xlsx", h.now().Format("20060102_150405"))
	respondFile(w, xlsxContentType, name, data)
}
