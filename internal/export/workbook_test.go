package export

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"medstore/m/domain"
	"medstore/m/internal/ledger"
)

func rows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	out, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	return out
}

func TestStockWorkbook(t *testing.T) {
	data, err := StockWorkbook([]domain.Medicine{{
		Code: 100, Name: "Paracetamol", SupplierName: "Acme", SupplierContact: 9876543210,
		Price: decimal.RequireFromString("12.50"), Quantity: 10,
		Expiry: domain.ExpiryDate{Year: 2027, Month: 3, Day: 9},
	}})
	require.NoError(t, err)

	got := rows(t, data)
	require.Len(t, got, 2)
	assert.Equal(t, "Code", got[0][0])
	assert.Equal(t, []string{"100", "Paracetamol", "Acme", "9876543210", "12.5", "10", "2027-03-09"}, got[1])
}

func TestSalesWorkbook(t *testing.T) {
	report := ledger.Report{
		Lines: []domain.SaleLine{{
			InvoiceID: "1-a", Date: "2026-10-16", Time: "09:00:00", CustomerName: "Asha",
			MedicineCode: 100, MedicineName: "Paracetamol", Quantity: 2,
			PricePerItem: decimal.RequireFromString("12.50"), TotalCost: decimal.RequireFromString("25.00"),
		}},
		Summary: domain.SalesSummary{Invoices: 1, ItemsSold: 2, TotalValue: decimal.RequireFromString("25.00")},
	}

	data, err := SalesWorkbook(report)
	require.NoError(t, err)

	got := rows(t, data)
	require.Len(t, got, 6)
	assert.Equal(t, "Invoice", got[0][0])
	assert.Equal(t, "1-a", got[1][0])
	assert.Equal(t, "25", got[1][8])
	assert.Equal(t, []string{"Transactions", "1"}, got[3])
	assert.Equal(t, []string{"Total value", "25"}, got[5])
}
