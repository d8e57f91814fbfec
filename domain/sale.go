package domain

import "github.com/shopspring/decimal"

// SaleLine is one ledger row: a single medicine on a single invoice.
type SaleLine struct {
	InvoiceID    string          `db:"invoice_id" json:"invoice_id"`
	Date         string          `db:"sold_on" json:"date"`
	Time         string          `db:"sold_at" json:"time"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	MedicineCode int             `db:"medicine_code" json:"medicine_code"`
	MedicineName string          `db:"medicine_name" json:"medicine_name"`
	Quantity     int             `db:"quantity" json:"quantity"`
	PricePerItem decimal.Decimal `db:"price_per_item" json:"price_per_item"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
}

// SalesSummary aggregates ledger rows. Invoices counts distinct invoice ids.
type SalesSummary struct {
	Invoices   int             `json:"invoices"`
	ItemsSold  int             `json:"items_sold"`
	TotalValue decimal.Decimal `json:"total_value"`
}
