package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"medstore/m/internal/billing"
)

type billItemRequest struct {
	Code     json.Number `json:"code"`
	Quantity json.Number `json:"quantity"`
}

type billRequest struct {
	CustomerName string            `json:"customer_name"`
	Items        []billItemRequest `json:"items"`
}

// createBill accepts either a JSON body or a form post with repeated
// medicineCode[] and quantity[] fields.
func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	req, err := parseBill(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.billing.Process(r.Context(), req)
	var rej *billing.RejectedError
	switch {
	case errors.As(err, &rej):
		respondJSON(w, statusFor(rej), map[string]any{
			"error":    rej.Error(),
			"stage":    rej.Stage,
			"problems": rej.Problems,
			"items":    rej.Items,
		})
		return
	case err != nil:
		h.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func parseBill(r *http.Request) (billing.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body billRequest
		if err := decodeJSON(r, &body); err != nil {
			return billing.Request{}, err
		}
		req := billing.Request{CustomerName: body.CustomerName}
		for _, it := range body.Items {
			req.Codes = append(req.Codes, it.Code.String())
			req.Quantities = append(req.Quantities, it.Quantity.String())
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return billing.Request{}, err
	}
	name := r.PostForm.Get("customerName")
	if name == "" {
		name = r.PostForm.Get("customer_name")
	}
	return billing.Request{
		CustomerName: name,
		Codes:        formList(r, "medicineCode"),
		Quantities:   formList(r, "quantity"),
	}, nil
}

// formList reads key[] and falls back to bare key.
func formList(r *http.Request, key string) []string {
	if vals, ok := r.PostForm[key+"[]"]; ok {
		return vals
	}
	return r.PostForm[key]
}
