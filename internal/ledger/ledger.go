// Package ledger appends sale lines to the sales CSV and reads them back.
// The file is append only; nothing here rewrites or truncates it.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"

	"medstore/m/domain"
	"medstore/m/internal/fieldcodec"
)

const maxLineBytes = 1 << 20

// Report is every readable ledger line plus their summary.
type Report struct {
	Lines   []domain.SaleLine   `json:"lines"`
	Summary domain.SalesSummary `json:"summary"`
}

type Ledger struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	log  *slog.Logger
}

func New(fs afero.Fs, path string, log *slog.Logger) *Ledger {
	return &Ledger{fs: fs, path: path, log: log}
}

func (l *Ledger) Path() string { return l.path }

// Append writes one sale line. A new or empty file gets the header first, and
// a file whose last line lacks a newline gets one before the new row.
func (l *Ledger) Append(s domain.SaleLine) error {
	row := fieldcodec.EncodeSaleLine(s)
	if strings.ContainsAny(row, "\r\n") {
		return fmt.Errorf("sale line for invoice %s would span more than one line", s.InvoiceID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fs.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger %s: %w", l.path, err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(fieldcodec.LedgerHeader + "\n")
	} else {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read ledger tail %s: %w", l.path, err)
		}
		if last[0] != '\n' {
			b.WriteByte('\n')
		}
	}
	b.WriteString(row + "\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append to ledger %s: %w", l.path, err)
	}
	return f.Close()
}

// All reads the ledger lazily. The first line is skipped when it is the
// header; malformed lines are logged and skipped. Only open and read failures
// are yielded as errors. A missing ledger yields nothing.
func (l *Ledger) All() iter.Seq2[domain.SaleLine, error] {
	return func(yield func(domain.SaleLine, error) bool) {
		f, err := l.fs.Open(l.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			yield(domain.SaleLine{}, fmt.Errorf("open ledger %s: %w", l.path, err))
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		ln := 0
		first := true
		for sc.Scan() {
			ln++
			line := sc.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			if first {
				first = false
				if fieldcodec.IsLedgerHeader(line) {
					continue
				}
				l.log.Warn("ledger has no header row, reading first line as data", "path", l.path)
			}

			sale, warnings, err := fieldcodec.DecodeSaleLine(line)
			for _, w := range warnings {
				l.log.Warn("ledger line diagnostic", "line", ln, "detail", w)
			}
			if err != nil {
				l.log.Warn("skipping malformed ledger line", "path", l.path, "line", ln, "err", err)
				continue
			}
			if !yield(sale, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(domain.SaleLine{}, fmt.Errorf("read ledger %s: %w", l.path, err))
		}
	}
}

// Summarize counts distinct invoices, items sold and total value.
func Summarize(lines iter.Seq2[domain.SaleLine, error]) (domain.SalesSummary, error) {
	sum := domain.SalesSummary{TotalValue: decimal.Zero}
	seen := make(map[string]struct{})
	for s, err := range lines {
		if err != nil {
			return domain.SalesSummary{}, err
		}
		seen[s.InvoiceID] = struct{}{}
		sum.ItemsSold += s.Quantity
		sum.TotalValue = sum.TotalValue.Add(s.TotalCost)
	}
	sum.Invoices = len(seen)
	return sum, nil
}

// Report collects every line and summarizes them in one pass over the file.
func (l *Ledger) Report() (Report, error) {
	var r Report
	collect := func(yield func(domain.SaleLine, error) bool) {
		for s, err := range l.All() {
			if err == nil {
				r.Lines = append(r.Lines, s)
			}
			if !yield(s, err) {
				return
			}
		}
	}
	sum, err := Summarize(collect)
	if err != nil {
		return Report{}, err
	}
	r.Summary = sum
	return r, nil
}
