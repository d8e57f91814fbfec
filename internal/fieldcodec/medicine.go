package fieldcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

// MedicineFields is the number of fields on a stock file line.
const MedicineFields = 9

// EncodeMedicine renders a stock line:
// name,code,supplier_name,supplier_contact,price,quantity,year,month,day
func EncodeMedicine(m domain.Medicine) string {
	return strings.Join([]string{
		quoteIfNeeded(m.Name),
		strconv.Itoa(m.Code),
		quoteIfNeeded(m.SupplierName),
		strconv.FormatInt(m.SupplierContact, 10),
		m.Price.StringFixed(2),
		strconv.Itoa(m.Quantity),
		strconv.Itoa(m.Expiry.Year),
		strconv.Itoa(m.Expiry.Month),
		strconv.Itoa(m.Expiry.Day),
	}, ",")
}

// DecodeMedicine parses a stock line. Every failure wraps domain.ErrMalformedRecord.
func DecodeMedicine(line string) (domain.Medicine, []string, error) {
	fields, warnings := Split(line)
	if len(fields) != MedicineFields {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: expected %d fields, got %d", domain.ErrMalformedRecord, MedicineFields, len(fields))
	}

	var (
		m   domain.Medicine
		err error
	)
	m.Name = fields[0]
	m.SupplierName = fields[2]
	if m.Name == "" || m.SupplierName == "" {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: empty name field", domain.ErrMalformedRecord)
	}
	if m.Code, err = strconv.Atoi(fields[1]); err != nil || m.Code <= 0 {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: bad code %q", domain.ErrMalformedRecord, fields[1])
	}
	if m.SupplierContact, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: bad supplier contact %q", domain.ErrMalformedRecord, fields[3])
	}
	if m.Price, err = decimal.NewFromString(fields[4]); err != nil || m.Price.IsNegative() {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: bad price %q", domain.ErrMalformedRecord, fields[4])
	}
	if m.Quantity, err = strconv.Atoi(fields[5]); err != nil || m.Quantity < 0 {
		return domain.Medicine{}, warnings, fmt.Errorf("%w: bad quantity %q", domain.ErrMalformedRecord, fields[5])
	}
	date := [3]*int{&m.Expiry.Year, &m.Expiry.Month, &m.Expiry.Day}
	for i, p := range date {
		if *p, err = strconv.Atoi(fields[6+i]); err != nil {
			return domain.Medicine{}, warnings, fmt.Errorf("%w: bad expiry field %q", domain.ErrMalformedRecord, fields[6+i])
		}
	}
	return m, warnings, nil
}

// LineCode extracts only the code of a stock line, for lines that are copied
// through a rewrite untouched.
func LineCode(line string) (int, bool) {
	fields, _ := Split(line)
	if len(fields) < 2 {
		return 0, false
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return code, true
}
