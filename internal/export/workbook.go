// Package export renders stock and sales as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"medstore/m/domain"
	"medstore/m/internal/ledger"
)

// StockWorkbook lists every medicine, one row each.
func StockWorkbook(items []domain.Medicine) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"Code", "Name", "Supplier", "Supplier contact", "Price", "Quantity", "Expiry",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("stock header: %w", err)
	}

	row := 2
	for _, m := range items {
		excelRow := []interface{}{
			m.Code,
			m.Name,
			m.SupplierName,
			m.SupplierContact,
			m.Price.InexactFloat64(),
			m.Quantity,
			m.Expiry.String(),
		}
		if err := setRow(f, sheet, row, excelRow); err != nil {
			return nil, err
		}
		row++
	}
	return write(f)
}

// SalesWorkbook lists every ledger line followed by the summary rows.
func SalesWorkbook(r ledger.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"Invoice", "Date", "Time", "Customer", "Code", "Medicine", "Quantity", "Price per item", "Total",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("sales header: %w", err)
	}

	row := 2
	for _, s := range r.Lines {
		excelRow := []interface{}{
			s.InvoiceID,
			s.Date,
			s.Time,
			s.CustomerName,
			s.MedicineCode,
			s.MedicineName,
			s.Quantity,
			s.PricePerItem.InexactFloat64(),
			s.TotalCost.InexactFloat64(),
		}
		if err := setRow(f, sheet, row, excelRow); err != nil {
			return nil, err
		}
		row++
	}

	row++
	for _, summary := range [][]interface{}{
		{"Transactions", r.Summary.Invoices},
		{"Items sold", r.Summary.ItemsSold},
		{"Total value", r.Summary.TotalValue.InexactFloat64()},
	} {
		if err := setRow(f, sheet, row, summary); err != nil {
			return nil, err
		}
		row++
	}
	return write(f)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
