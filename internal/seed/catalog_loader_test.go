package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
	"medstore/m/internal/logger"
)

const catalog = `code,name,supplier_name,supplier_contact,price,quantity,expiry
100,Paracetamol,Acme Pharma,9876543210,12.5,10,2027-03-09
20,"Cetirizine, 10mg",Zen Labs,5551234,3.00,40,2026-11-01
7,Ibuprofen,Acme Pharma,9876543210,abc,5,2027-01-01
100,Paracetamol again,Acme Pharma,9876543210,12.5,10,2027-03-09
8,Zinc,Acme Pharma,9876543210,1.00,0,2027-01-01
9,Iron,Acme Pharma,9876543210,1.00,3,2027-02-02
`

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(catalog), 0o644))

	stockPath := filepath.Join(dir, "stock.csv")
	inv := inventory.New(inventory.NewStore(afero.NewOsFs(), stockPath, logger.Discard(), nil), 16, logger.Discard(), nil)
	_, err := inv.Load()
	require.NoError(t, err)

	added := LoadCatalog(afero.NewOsFs(), inv, csvPath, logger.Discard())
	assert.Equal(t, 3, added)

	var codes []int
	for _, m := range inv.List() {
		codes = append(codes, m.Code)
	}
	assert.Equal(t, []int{9, 20, 100}, codes)

	got, err := inv.Get(20)
	require.NoError(t, err)
	assert.Equal(t, "Cetirizine, 10mg", got.Name)
	assert.Equal(t, domain.ExpiryDate{Year: 2026, Month: 11, Day: 1}, got.Expiry)

	// A second run finds everything already stocked.
	assert.Equal(t, 0, LoadCatalog(afero.NewOsFs(), inv, csvPath, logger.Discard()))
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	assert.Equal(t, 0, LoadCatalog(afero.NewMemMapFs(), nil, "none.csv", logger.Discard()))
}

// countingFs counts temp files created, one per stock file rewrite.
type countingFs struct {
	afero.Fs
	rewrites int
}

func (c *countingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_EXCL != 0 {
		c.rewrites++
	}
	return c.Fs.OpenFile(name, flag, perm)
}

func TestLoadCatalog_ReadsThroughFsInOneRewrite(t *testing.T) {
	mem := &countingFs{Fs: afero.NewMemMapFs()}
	require.NoError(t, afero.WriteFile(mem, "catalog.csv", []byte(catalog), 0o644))

	inv := inventory.New(inventory.NewStore(mem, "stock.csv", logger.Discard(), nil), 16, logger.Discard(), nil)
	_, err := inv.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, LoadCatalog(mem, inv, "catalog.csv", logger.Discard()))
	assert.Equal(t, 1, mem.rewrites)

	raw, err := afero.ReadFile(mem, "stock.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(raw), "\n"))
}
