package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Medicine is one stock record. Code is the primary key; Quantity is the only
// field that changes after the record is added.
type Medicine struct {
	Code            int             `json:"code"`
	Name            string          `json:"name"`
	SupplierName    string          `json:"supplier_name"`
	SupplierContact int64           `json:"supplier_contact"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	Expiry          ExpiryDate      `json:"expiry_date"`
}

// ExpiryDate is kept as three integers, the way the stock file stores it.
type ExpiryDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// ParseExpiry reads YYYY-MM-DD. Values are range checked only loosely, as on add.
func ParseExpiry(s string) (ExpiryDate, error) {
	var d ExpiryDate
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &d.Month, &d.Day); err != nil {
		return ExpiryDate{}, fmt.Errorf("%w: expiry %q must be YYYY-MM-DD", ErrValidation, s)
	}
	return d, nil
}

// Valid applies the basic range checks used when a record is added.
func (d ExpiryDate) Valid() bool {
	return d.Year >= 1970 && d.Month >= 1 && d.Month <= 12 && d.Day >= 1 && d.Day <= 31
}

// Time returns local midnight of the expiry day. Out of range days roll over
// the same way time.Date normalizes them.
func (d ExpiryDate) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func (d ExpiryDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalText renders the date as YYYY-MM-DD in JSON payloads.
func (d ExpiryDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts YYYY-MM-DD.
func (d *ExpiryDate) UnmarshalText(b []byte) error {
	parsed, err := ParseExpiry(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ExpiryStatus classifies a record against today and a warning window.
type ExpiryStatus string

const (
	ExpiryOK           ExpiryStatus = "ok"
	ExpiryExpired      ExpiryStatus = "expired"
	ExpiryExpiringSoon ExpiryStatus = "expiring_soon"
)

// ExpiryAlert is one record flagged by an expiry scan.
type ExpiryAlert struct {
	Medicine
	Status ExpiryStatus `json:"status"`
}

// Validate checks a record before it is added to stock.
func (m Medicine) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: medicine name is required", ErrValidation)
	case strings.IndexFunc(m.Name, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: medicine name contains control characters", ErrValidation)
	case m.Code <= 0:
		return fmt.Errorf("%w: medicine code must be positive", ErrValidation)
	case m.SupplierName == "":
		return fmt.Errorf("%w: supplier name is required", ErrValidation)
	case strings.IndexFunc(m.SupplierName, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: supplier name contains control characters", ErrValidation)
	case m.SupplierContact <= 0:
		return fmt.Errorf("%w: supplier contact must be positive", ErrValidation)
	case m.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	case m.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	case !m.Expiry.Valid():
		return fmt.Errorf("%w: expiry date %s is out of range", ErrValidation, m.Expiry)
	}
	return nil
}

// Equal compares records field by field, prices numerically.
func (m Medicine) Equal(o Medicine) bool {
	return m.Code == o.Code &&
		m.Name == o.Name &&
		m.SupplierName == o.SupplierName &&
		m.SupplierContact == o.SupplierContact &&
		m.Price.Equal(o.Price) &&
		m.Quantity == o.Quantity &&
		m.Expiry == o.Expiry
}
