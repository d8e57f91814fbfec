package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/fieldcodec"
	"medstore/m/internal/logger"
)

func sale(invoice string, code, qty int, price string) domain.SaleLine {
	p := decimal.RequireFromString(price)
	return domain.SaleLine{
		InvoiceID:    invoice,
		Date:         "2026-10-16",
		Time:         "09:00:00",
		CustomerName: "Asha",
		MedicineCode: code,
		MedicineName: fmt.Sprintf("Medicine %d", code),
		Quantity:     qty,
		PricePerItem: p,
		TotalCost:    p.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func collect(t *testing.T, l *Ledger) []domain.SaleLine {
	t.Helper()
	var out []domain.SaleLine
	for s, err := range l.All() {
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestAppend_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	l := New(afero.NewOsFs(), path, logger.Discard())

	require.NoError(t, l.Append(sale("inv-1", 100, 4, "12.50")))
	require.NoError(t, l.Append(sale("inv-1", 20, 1, "3.00")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := fieldcodec.LedgerHeader + "\n" +
		`"inv-1",2026-10-16,09:00:00,"Asha",100,"Medicine 100",4,12.50,50.00` + "\n" +
		`"inv-1",2026-10-16,09:00:00,"Asha",20,"Medicine 20",1,3.00,3.00` + "\n"
	assert.Equal(t, want, string(raw))
}

func TestAppend_RepairsMissingTrailingNewline(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sales.csv",
		[]byte(fieldcodec.LedgerHeader+"\n"+`"old",2026-01-01,10:00:00,"Ravi",5,"Aspirin",2,1.50,3.00`), 0o644))
	l := New(fs, "sales.csv", logger.Discard())

	require.NoError(t, l.Append(sale("new", 7, 1, "2.00")))

	lines := collect(t, l)
	require.Len(t, lines, 2)
	assert.Equal(t, "old", lines[0].InvoiceID)
	assert.Equal(t, "new", lines[1].InvoiceID)
}

func TestAppend_RefusesLineBreaks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	l := New(afero.NewOsFs(), path, logger.Discard())
	require.NoError(t, l.Append(sale("inv-1", 100, 4, "12.50")))

	bad := sale("inv-2", 20, 1, "3.00")
	bad.MedicineName = "Ceti\nrizine"
	assert.Error(t, l.Append(bad))

	lines := collect(t, l)
	require.Len(t, lines, 1)
	assert.Equal(t, "inv-1", lines[0].InvoiceID)
}

func TestAll_MissingLedgerIsEmpty(t *testing.T) {
	l := New(afero.NewMemMapFs(), "sales.csv", logger.Discard())
	assert.Empty(t, collect(t, l))
}

func TestAll_SkipsMalformedLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := fieldcodec.LedgerHeader + "\n" +
		`"a",2026-01-01,10:00:00,"Ravi",5,"Aspirin",2,1.50,3.00` + "\n" +
		`"b",2026-01-01,10:00:00,"Ravi",5,"Aspirin"` + "\n" +
		"\n" +
		`"c",2026-01-02,11:00:00,"Mina",6,"Zinc",1,4.00,4.00` + "\n"
	require.NoError(t, afero.WriteFile(fs, "sales.csv", []byte(content), 0o644))
	l := New(fs, "sales.csv", logger.Discard())

	lines := collect(t, l)
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].InvoiceID)
	assert.Equal(t, "c", lines[1].InvoiceID)
}

func TestAll_ReadsHeaderlessLedger(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "1700000000-1,2024-01-01,10:00:00,Ravi,5,Aspirin,2,1.50,3.00\n"
	require.NoError(t, afero.WriteFile(fs, "sales.csv", []byte(content), 0o644))
	l := New(fs, "sales.csv", logger.Discard())

	lines := collect(t, l)
	require.Len(t, lines, 1)
	assert.Equal(t, "1700000000-1", lines[0].InvoiceID)
}

func TestAll_StopsWhenConsumerStops(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := New(fs, "sales.csv", logger.Discard())
	for i := range 5 {
		require.NoError(t, l.Append(sale(fmt.Sprint(i), 1, 1, "1.00")))
	}

	n := 0
	for range l.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestSummarize_CountsDistinctInvoices(t *testing.T) {
	l := New(afero.NewMemMapFs(), "sales.csv", logger.Discard())
	require.NoError(t, l.Append(sale("inv-1", 100, 4, "12.50")))
	require.NoError(t, l.Append(sale("inv-1", 20, 2, "3.00")))
	require.NoError(t, l.Append(sale("inv-2", 20, 1, "3.00")))

	sum, err := Summarize(l.All())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Invoices)
	assert.Equal(t, 7, sum.ItemsSold)
	assert.True(t, decimal.RequireFromString("59.00").Equal(sum.TotalValue), sum.TotalValue.String())
}

func TestReport(t *testing.T) {
	l := New(afero.NewMemMapFs(), "sales.csv", logger.Discard())
	require.NoError(t, l.Append(sale("inv-1", 100, 1, "12.50")))
	require.NoError(t, l.Append(sale("inv-1", 101, 1, "1.50")))

	r, err := l.Report()
	require.NoError(t, err)
	assert.Len(t, r.Lines, 2)
	assert.Equal(t, 1, r.Summary.Invoices)
	assert.True(t, decimal.RequireFromString("14").Equal(r.Summary.TotalValue))
}

func TestAppend_ConcurrentWritersKeepLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	l := New(afero.NewOsFs(), path, logger.Discard())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Append(sale(fmt.Sprintf("inv-%d", i), 1, 1, "1.00")))
		}()
	}
	wg.Wait()

	lines := collect(t, l)
	assert.Len(t, lines, 20)
	sum, err := Summarize(l.All())
	require.NoError(t, err)
	assert.Equal(t, 20, sum.Invoices)
}
