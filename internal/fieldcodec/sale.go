package fieldcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// LedgerHeader is written once at the top of a new sales ledger.
const LedgerHeader = "InvoiceID,Date,Time,CustomerName,MedicineCode,MedicineName,Quantity,PricePerItem,TotalCost"

const saleFields = 9

// IsLedgerHeader reports whether line looks like the ledger header row.
func IsLedgerHeader(line string) bool {
	for _, col := range []string{"InvoiceID", "Date", "CustomerName", "TotalCost"} {
		if !strings.Contains(line, col) {
			return false
		}
	}
	return true
}

// EncodeSaleLine quotes the invoice id, customer and medicine name; numbers,
// date and time stay bare.
func EncodeSaleLine(s domain.SaleLine) string {
	fields := []string{
		s.InvoiceID,
		s.Date,
		s.Time,
		s.CustomerName,
		strconv.Itoa(s.MedicineCode),
		s.MedicineName,
		strconv.Itoa(s.Quantity),
		s.PricePerItem.StringFixed(2),
		s.TotalCost.StringFixed(2),
	}
	return Join(fields, func(i int) bool { return i == 0 || i == 3 || i == 5 })
}

// DecodeSaleLine parses a ledger row written quoted or bare. Fields past the
// ninth are ignored.
func DecodeSaleLine(line string) (domain.SaleLine, []string, error) {
	fields, warnings := Split(line)
	if len(fields) < saleFields {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: expected %d fields, got %d", domain.ErrMalformedRecord, saleFields, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	s := domain.SaleLine{
		InvoiceID:    fields[0],
		Date:         fields[1],
		Time:         fields[2],
		CustomerName: fields[3],
		MedicineName: fields[5],
	}
	if s.InvoiceID == "" {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: empty invoice id", domain.ErrMalformedRecord)
	}

	var err error
	if s.MedicineCode, err = strconv.Atoi(fields[4]); err != nil || s.MedicineCode <= 0 {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: bad medicine code %q", domain.ErrMalformedRecord, fields[4])
	}
	if s.Quantity, err = strconv.Atoi(fields[6]); err != nil || s.Quantity <= 0 {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: bad quantity %q", domain.ErrMalformedRecord, fields[6])
	}
	if s.PricePerItem, err = decimal.NewFromString(fields[7]); err != nil {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: bad price %q", domain.ErrMalformedRecord, fields[7])
	}
	if s.TotalCost, err = decimal.NewFromString(fields[8]); err != nil || s.TotalCost.IsNegative() {
		return domain.SaleLine{}, warnings, fmt.Errorf("%w: bad total %q", domain.ErrMalformedRecord, fields[8])
	}
	return s, warnings, nil
}
