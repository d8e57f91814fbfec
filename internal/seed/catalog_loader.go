package seed

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
)

// Adder receives the parsed catalog. *inventory.Inventory satisfies it.
type Adder interface {
	AddAll([]domain.Medicine) ([]domain.Medicine, []inventory.Rejection, error)
}

// LoadCatalog adds every row of a headered catalog CSV
// (code,name,supplier_name,supplier_contact,price,quantity,expiry) that is
// not already in stock, in one stock file rewrite. It returns the number of
// rows added.
func LoadCatalog(fs afero.Fs, inv Adder, csvPath string, log *slog.Logger) int {
	file, err := fs.Open(csvPath)
	if err != nil {
		log.Warn("unable to load medicine catalog", "path", csvPath, "err", err)
		return 0
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Warn("unable to read catalog header", "path", csvPath, "err", err)
		return 0
	}

	var medicines []domain.Medicine
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("unable to read catalog row", "err", err)
			continue
		}
		m, err := parseRow(record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			log.Warn("skipping catalog row", "line", line, "err", err)
			continue
		}
		medicines = append(medicines, m)
	}

	added, rejected, err := inv.AddAll(medicines)
	for _, r := range rejected {
		if errors.Is(r.Err, domain.ErrDuplicateKey) {
			log.Debug("catalog medicine already stocked", "code", r.Medicine.Code)
			continue
		}
		log.Warn("unable to add catalog medicine", "code", r.Medicine.Code, "err", r.Err)
	}
	if err != nil {
		log.Error("catalog seed failed", "path", csvPath, "err", err)
		return 0
	}

	log.Info("seeded medicine catalog", "path", csvPath, "rows", len(added))
	return len(added)
}

func parseRow(record []string) (domain.Medicine, error) {
	if len(record) < 7 {
		return domain.Medicine{}, domain.ErrMalformedRecord
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	var (
		m   domain.Medicine
		err error
	)
	if m.Code, err = strconv.Atoi(record[0]); err != nil {
		return m, errors.Join(domain.ErrMalformedRecord, err)
	}
	m.Name = record[1]
	m.SupplierName = record[2]
	if m.SupplierContact, err = strconv.ParseInt(record[3], 10, 64); err != nil {
		return m, errors.Join(domain.ErrMalformedRecord, err)
	}
	if m.Price, err = decimal.NewFromString(record[4]); err != nil {
		return m, errors.Join(domain.ErrMalformedRecord, err)
	}
	if m.Quantity, err = strconv.Atoi(record[5]); err != nil {
		return m, errors.Join(domain.ErrMalformedRecord, err)
	}
	if m.Expiry, err = domain.ParseExpiry(record[6]); err != nil {
		return m, errors.Join(domain.ErrMalformedRecord, err)
	}
	return m, nil
}
