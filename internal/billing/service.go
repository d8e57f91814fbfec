// Package billing turns a multi-item bill into one stock commit and a set of
// ledger lines sharing one invoice id. A bill either commits every item or
// none of them.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
	"medstore/m/internal/metrics"
)

// Stock runs fn under the inventory write lock and commits what it returns.
type Stock interface {
	Update(fn func(inventory.View) (map[int]int, error)) error
}

// Recorder appends sale lines to the ledger.
type Recorder interface {
	Append(domain.SaleLine) error
}

// SaleObserver is told about every recorded bill after the ledger write.
type SaleObserver interface {
	SaleRecorded(ctx context.Context, lines []domain.SaleLine) error
}

// IDGenerator makes an invoice id for a bill recorded at now.
type IDGenerator func(now time.Time) string

// NewInvoiceID returns "<unix seconds>-<random uuid>".
func NewInvoiceID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString())
}

// Result describes a recorded bill.
type Result struct {
	InvoiceID    string            `json:"invoice_id"`
	Date         string            `json:"date"`
	Time         string            `json:"time"`
	CustomerName string            `json:"customer_name"`
	State        State             `json:"state"`
	Items        []Item            `json:"items"`
	Lines        []domain.SaleLine `json:"lines"`
	GrandTotal   decimal.Decimal   `json:"grand_total"`
	// PartiallyRecorded is set when stock was committed but some sale lines
	// could not be appended to the ledger.
	PartiallyRecorded bool     `json:"partially_recorded"`
	LedgerWarnings    []string `json:"ledger_warnings,omitempty"`
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) { s.newID = gen }
}

func WithObserver(o SaleObserver) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

type Service struct {
	stock     Stock
	ledger    Recorder
	observers []SaleObserver
	newID     IDGenerator
	now       func() time.Time
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(stock Stock, ledger Recorder, log *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		stock:   stock,
		ledger:  ledger,
		newID:   NewInvoiceID,
		now:     time.Now,
		log:     log,
		metrics: m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process validates the whole bill, commits every stock change in one
// rewrite and then records the sale lines. Any failure up to and including
// the commit returns a *RejectedError and leaves stock and ledger as they
// were. Ledger failures after the commit are reported on the Result.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	customer, items, rej := collect(req)
	if rej != nil {
		s.rejected(rej)
		return nil, rej
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stockRej *RejectedError
	err := s.stock.Update(func(v inventory.View) (map[int]int, error) {
		changes, rej := validate(v, items)
		if rej != nil {
			stockRej = rej
			return nil, rej
		}
		// Last point where the bill can still be abandoned.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return changes, nil
	})
	switch {
	case stockRej != nil:
		s.rejected(stockRej)
		return nil, stockRej
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case err != nil:
		rej := commitRejection(items, err)
		s.rejected(rej)
		return nil, rej
	}

	res := s.record(customer, items)
	for _, o := range s.observers {
		if err := o.SaleRecorded(context.WithoutCancel(ctx), res.Lines); err != nil {
			s.log.Warn("sale observer failed", "invoice_id", res.InvoiceID, "err", err)
		}
	}
	return res, nil
}

func (s *Service) record(customer string, items []Item) *Result {
	now := s.now()
	res := &Result{
		InvoiceID:    s.newID(now),
		Date:         now.Format(time.DateOnly),
		Time:         now.Format(time.TimeOnly),
		CustomerName: customer,
		State:        StateRecorded,
		Items:        items,
		GrandTotal:   decimal.Zero,
	}

	for _, it := range items {
		line := domain.SaleLine{
			InvoiceID:    res.InvoiceID,
			Date:         res.Date,
			Time:         res.Time,
			CustomerName: customer,
			MedicineCode: it.Code,
			MedicineName: it.Name,
			Quantity:     it.Quantity,
			PricePerItem: it.Price,
			TotalCost:    it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		res.GrandTotal = res.GrandTotal.Add(line.TotalCost)
		if err := s.ledger.Append(line); err != nil {
			s.metrics.LedgerAppendFailed()
			s.log.Error("sale line not recorded", "invoice_id", res.InvoiceID, "code", it.Code, "err", err)
			res.LedgerWarnings = append(res.LedgerWarnings,
				fmt.Sprintf("item %d (code %d) committed to stock but not recorded: %v", it.Position, it.Code, err))
			continue
		}
		res.Lines = append(res.Lines, line)
	}

	outcome := "recorded"
	if len(res.LedgerWarnings) > 0 {
		res.PartiallyRecorded = true
		outcome = "partial"
	}
	s.metrics.BillOutcome(outcome)
	s.log.Info("bill recorded", "invoice_id", res.InvoiceID, "customer", customer,
		"items", len(items), "total", res.GrandTotal.StringFixed(2), "partial", res.PartiallyRecorded)
	return res
}

func (s *Service) rejected(rej *RejectedError) {
	s.metrics.BillOutcome("rejected_" + string(rej.Stage))
	s.log.Warn("bill rejected", "stage", rej.Stage, "problems", rej.Problems)
}
