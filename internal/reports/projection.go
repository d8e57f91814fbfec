// Package reports keeps a SQLite copy of the sales ledger for date based
// queries. The CSV ledger stays authoritative; the table is rebuilt from it
// on every start and extended as bills are recorded.
package reports

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"medstore/m/domain"
)

const insertLine = `INSERT INTO sale_lines
    (invoice_id, sold_on, sold_at, customer_name, medicine_code, medicine_name, quantity, price_per_item, total_cost)
    VALUES (:invoice_id, :sold_on, :sold_at, :customer_name, :medicine_code, :medicine_name, :quantity, :price_per_item, :total_cost)`

const selectLines = `SELECT invoice_id, sold_on, sold_at, customer_name, medicine_code, medicine_name,
    quantity, price_per_item, total_cost FROM sale_lines`

// Totals aggregates the lines of one day or month.
type Totals struct {
	Period    string          `json:"period"`
	Invoices  int             `json:"invoices"`
	ItemsSold int             `json:"items_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// Invoice groups the lines of one bill.
type Invoice struct {
	InvoiceID    string            `json:"invoice_id"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	CustomerName string            `json:"customer_name"`
	Total        decimal.Decimal   `json:"total"`
	Lines        []domain.SaleLine `json:"lines"`
}

type Projection struct {
	db  *sqlx.DB
	log *slog.Logger
}

func NewProjection(db *sqlx.DB, log *slog.Logger) *Projection {
	return &Projection{db: db, log: log}
}

// Rebuild replaces the table with the given lines in one transaction.
func (p *Projection) Rebuild(ctx context.Context, lines iter.Seq2[domain.SaleLine, error]) (int, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sale_lines`); err != nil {
		return 0, fmt.Errorf("clear sale lines: %w", err)
	}
	stmt, err := tx.PrepareNamedContext(ctx, insertLine)
	if err != nil {
		return 0, fmt.Errorf("prepare sale line insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for s, err := range lines {
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("insert sale line %s/%d: %w", s.InvoiceID, s.MedicineCode, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	p.log.Info("sales projection rebuilt", "lines", n)
	return n, nil
}

// SaleRecorded adds the lines of a freshly recorded bill.
func (p *Projection) SaleRecorded(ctx context.Context, lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin projection: %w", err)
	}
	defer tx.Rollback()
	for _, s := range lines {
		if _, err := tx.NamedExecContext(ctx, insertLine, s); err != nil {
			return fmt.Errorf("project sale line %s/%d: %w", s.InvoiceID, s.MedicineCode, err)
		}
	}
	return tx.Commit()
}

// Daily totals the lines sold on day.
func (p *Projection) Daily(ctx context.Context, day time.Time) (Totals, error) {
	period := day.Format(time.DateOnly)
	var lines []domain.SaleLine
	if err := p.db.SelectContext(ctx, &lines, selectLines+` WHERE sold_on = ?`, period); err != nil {
		return Totals{}, fmt.Errorf("daily sales %s: %w", period, err)
	}
	return total(period, lines), nil
}

// Monthly totals the lines sold in the month containing month.
func (p *Projection) Monthly(ctx context.Context, month time.Time) (Totals, error) {
	period := month.Format("2006-01")
	var lines []domain.SaleLine
	if err := p.db.SelectContext(ctx, &lines, selectLines+` WHERE substr(sold_on, 1, 7) = ?`, period); err != nil {
		return Totals{}, fmt.Errorf("monthly sales %s: %w", period, err)
	}
	return total(period, lines), nil
}

// Invoices returns the bills sold between from and to inclusive, newest first.
func (p *Projection) Invoices(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	var lines []domain.SaleLine
	err := p.db.SelectContext(ctx, &lines,
		selectLines+` WHERE sold_on BETWEEN ? AND ? ORDER BY sold_on DESC, sold_at DESC, invoice_id, id`,
		from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("invoices: %w", err)
	}

	invoices := []Invoice{}
	pos := make(map[string]int)
	for _, s := range lines {
		i, ok := pos[s.InvoiceID]
		if !ok {
			i = len(invoices)
			pos[s.InvoiceID] = i
			invoices = append(invoices, Invoice{
				InvoiceID:    s.InvoiceID,
				Date:         s.Date,
				Time:         s.Time,
				CustomerName: s.CustomerName,
				Total:        decimal.Zero,
			})
		}
		invoices[i].Lines = append(invoices[i].Lines, s)
		invoices[i].Total = invoices[i].Total.Add(s.TotalCost)
	}
	return invoices, nil
}

func total(period string, lines []domain.SaleLine) Totals {
	t := Totals{Period: period, Revenue: decimal.Zero}
	seen := make(map[string]struct{})
	for _, s := range lines {
		seen[s.InvoiceID] = struct{}{}
		t.ItemsSold += s.Quantity
		t.Revenue = t.Revenue.Add(s.TotalCost)
	}
	t.Invoices = len(seen)
	return t
}
