// Package inventory owns the stock file and the two indices built from it.
// All writes go through one lock: validate, commit to disk, then update both
// indices. Reads share a read lock and never see a half applied change.
package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"medstore/m/domain"
	"medstore/m/internal/index"
	"medstore/m/internal/metrics"
)

// View is the read access a write callback gets while the lock is held.
type View interface {
	Find(code int) (domain.Medicine, bool)
}

// LoadReport describes the result of Load or Reload.
type LoadReport struct {
	Loaded     int           `json:"loaded"`
	Skipped    []SkippedLine `json:"skipped,omitempty"`
	Duplicates []int         `json:"duplicates,omitempty"`
}

// RestockResult reports a quantity adjustment.
type RestockResult struct {
	Medicine domain.Medicine `json:"medicine"`
	Previous int             `json:"previous_quantity"`
	Delta    int             `json:"delta"`
	Clamped  bool            `json:"clamped"`
}

type Inventory struct {
	mu       sync.RWMutex
	store    *Store
	capacity int
	keyed    *index.Keyed
	ordered  *index.Ordered
	// quarantine holds the replace failure that stopped writes.
	quarantine error
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func New(store *Store, capacity int, log *slog.Logger, m *metrics.Metrics) *Inventory {
	return &Inventory{
		store:    store,
		capacity: capacity,
		keyed:    index.NewKeyed(capacity),
		ordered:  index.NewOrdered(log),
		log:      log,
		metrics:  m,
	}
}

// Load builds both indices from the stock file. The first record seen for a
// code wins; later duplicates are logged and left out of both indices.
func (inv *Inventory) Load() (LoadReport, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.loadLocked()
}

// Reload rebuilds the indices from disk and lifts any quarantine.
func (inv *Inventory) Reload() (LoadReport, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	report, err := inv.loadLocked()
	if err != nil {
		return report, err
	}
	if inv.quarantine != nil {
		inv.log.Info("stock writes resumed after reload", "cause", inv.quarantine)
		inv.quarantine = nil
	}
	inv.metrics.SetQuarantined(false)
	return report, nil
}

func (inv *Inventory) loadLocked() (LoadReport, error) {
	keyed := index.NewKeyed(inv.capacity)
	ordered := index.NewOrdered(inv.log)
	var report LoadReport

	stats, err := inv.store.Load(func(m domain.Medicine) {
		if keyed.Insert(m) == index.DuplicateKey {
			inv.log.Warn("duplicate medicine code in stock file, keeping first", "code", m.Code)
			report.Duplicates = append(report.Duplicates, m.Code)
			return
		}
		ordered.Insert(m)
	})
	if err != nil {
		return LoadReport{}, err
	}
	report.Loaded = keyed.Len()
	report.Skipped = stats.Skipped
	inv.keyed, inv.ordered = keyed, ordered

	inv.metrics.SetItems(report.Loaded)
	inv.log.Info("inventory loaded", "path", inv.store.Path(), "records", report.Loaded,
		"skipped", len(report.Skipped), "duplicates", len(report.Duplicates))
	return report, nil
}

// Quarantined returns the failure that stopped writes, or nil.
func (inv *Inventory) Quarantined() error {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.quarantine
}

func (inv *Inventory) Get(code int) (domain.Medicine, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	m, ok := inv.keyed.Find(code)
	if !ok {
		return domain.Medicine{}, fmt.Errorf("%w: code %d", domain.ErrNotFound, code)
	}
	return m, nil
}

// SearchByName matches a case-insensitive substring of the name, in code order.
func (inv *Inventory) SearchByName(query string) []domain.Medicine {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.ordered.FindByNameSubstring(query)
}

// Search treats a positive integer query as a code and anything else as a
// name substring.
func (inv *Inventory) Search(query string) []domain.Medicine {
	query = strings.TrimSpace(query)
	if code, err := strconv.Atoi(query); err == nil && code > 0 {
		m, err := inv.Get(code)
		if err != nil {
			return nil
		}
		return []domain.Medicine{m}
	}
	return inv.SearchByName(query)
}

// List returns every record in ascending code order.
func (inv *Inventory) List() []domain.Medicine {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]domain.Medicine, 0, inv.ordered.Len())
	inv.ordered.Ascend(func(m domain.Medicine) bool {
		out = append(out, m)
		return true
	})
	return out
}

// ExpiryScan flags records that expired before today or expire within
// warnDays of it. Today is taken from now in its own location.
func (inv *Inventory) ExpiryScan(now time.Time, warnDays int) []domain.ExpiryAlert {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	horizon := today.AddDate(0, 0, warnDays)

	inv.mu.RLock()
	defer inv.mu.RUnlock()
	var alerts []domain.ExpiryAlert
	inv.ordered.Ascend(func(m domain.Medicine) bool {
		at := m.Expiry.Time(loc)
		switch {
		case at.Before(today):
			alerts = append(alerts, domain.ExpiryAlert{Medicine: m, Status: domain.ExpiryExpired})
		case at.Before(horizon):
			alerts = append(alerts, domain.ExpiryAlert{Medicine: m, Status: domain.ExpiryExpiringSoon})
		}
		return true
	})
	return alerts
}

func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.keyed.Len()
}

// Consistent checks that both indices hold the same codes with the same
// quantities.
func (inv *Inventory) Consistent() error {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if k, o := inv.keyed.Len(), inv.ordered.Len(); k != o {
		return fmt.Errorf("index sizes differ: keyed %d, ordered %d", k, o)
	}
	for _, code := range inv.keyed.Codes() {
		a, _ := inv.keyed.Find(code)
		b, ok := inv.ordered.FindByCode(code)
		if !ok {
			return fmt.Errorf("code %d missing from ordered index", code)
		}
		if a.Quantity != b.Quantity {
			return fmt.Errorf("code %d quantity differs: keyed %d, ordered %d", code, a.Quantity, b.Quantity)
		}
	}
	return nil
}

// Rejection is a record AddAll left out and the reason.
type Rejection struct {
	Medicine domain.Medicine
	Err      error
}

func normalize(m domain.Medicine) domain.Medicine {
	m.Name = strings.TrimSpace(m.Name)
	m.SupplierName = strings.TrimSpace(m.SupplierName)
	m.Price = m.Price.Round(2)
	return m
}

// Add validates m, appends it to the stock file and indexes it.
func (inv *Inventory) Add(m domain.Medicine) (domain.Medicine, error) {
	m = normalize(m)
	if err := m.Validate(); err != nil {
		return domain.Medicine{}, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.writableLocked(); err != nil {
		return domain.Medicine{}, err
	}
	if _, ok := inv.keyed.Find(m.Code); ok {
		return domain.Medicine{}, fmt.Errorf("%w: code %d", domain.ErrDuplicateKey, m.Code)
	}
	if err := inv.commitLocked(nil, m); err != nil {
		return domain.Medicine{}, err
	}
	inv.log.Info("medicine added", "code", m.Code, "name", m.Name, "quantity", m.Quantity)
	return m, nil
}

// AddAll adds every valid record with a new code in a single rewrite of the
// stock file. Invalid records and repeated codes, in stock or earlier in ms,
// are returned as rejections. If the commit fails nothing is added.
func (inv *Inventory) AddAll(ms []domain.Medicine) ([]domain.Medicine, []Rejection, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.writableLocked(); err != nil {
		return nil, nil, err
	}

	var (
		added    []domain.Medicine
		rejected []Rejection
	)
	batch := make(map[int]bool, len(ms))
	for _, m := range ms {
		m = normalize(m)
		if err := m.Validate(); err != nil {
			rejected = append(rejected, Rejection{Medicine: m, Err: err})
			continue
		}
		if _, ok := inv.keyed.Find(m.Code); ok || batch[m.Code] {
			rejected = append(rejected, Rejection{Medicine: m, Err: fmt.Errorf("%w: code %d", domain.ErrDuplicateKey, m.Code)})
			continue
		}
		batch[m.Code] = true
		added = append(added, m)
	}
	if len(added) == 0 {
		return nil, rejected, nil
	}
	if err := inv.commitLocked(nil, added...); err != nil {
		return nil, rejected, err
	}
	inv.log.Info("medicines added", "added", len(added), "rejected", len(rejected))
	return added, rejected, nil
}

// Restock adds delta to the quantity of code. A result below zero is stored
// as zero and reported as clamped; one above math.MaxInt is refused. A zero
// delta still rewrites the record.
func (inv *Inventory) Restock(code, delta int) (RestockResult, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.writableLocked(); err != nil {
		return RestockResult{}, err
	}
	m, ok := inv.keyed.Find(code)
	if !ok {
		return RestockResult{}, fmt.Errorf("%w: code %d", domain.ErrNotFound, code)
	}

	if delta > 0 && m.Quantity > math.MaxInt-delta {
		return RestockResult{}, fmt.Errorf("%w: restocking code %d by %d exceeds the largest quantity", domain.ErrValidation, code, delta)
	}
	res := RestockResult{Previous: m.Quantity, Delta: delta}
	next := m.Quantity + delta
	if next < 0 {
		inv.log.Warn("restock would go below zero, clamping", "code", code, "quantity", m.Quantity, "delta", delta)
		next = 0
		res.Clamped = true
	}
	if err := inv.commitLocked(map[int]int{code: next}); err != nil {
		return RestockResult{}, err
	}
	m.Quantity = next
	res.Medicine = m
	inv.log.Info("medicine restocked", "code", code, "previous", res.Previous, "quantity", next)
	return res, nil
}

// Update runs fn with the write lock held. fn returns the new quantity per
// code; they are committed in one rewrite and then applied to both indices.
// If fn fails nothing is written.
func (inv *Inventory) Update(fn func(View) (map[int]int, error)) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err := inv.writableLocked(); err != nil {
		return err
	}
	changes, err := fn(inv.keyed)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	return inv.commitLocked(changes)
}

func (inv *Inventory) writableLocked() error {
	if inv.quarantine != nil {
		return fmt.Errorf("%w: %v", domain.ErrQuarantined, inv.quarantine)
	}
	return nil
}

// commitLocked writes to disk first and touches the indices only on success.
func (inv *Inventory) commitLocked(changes map[int]int, added ...domain.Medicine) error {
	for code := range changes {
		if _, ok := inv.keyed.Find(code); !ok {
			return fmt.Errorf("%w: code %d", domain.ErrNotFound, code)
		}
	}
	if err := inv.store.Commit(changes, added...); err != nil {
		if errors.Is(err, domain.ErrCriticalConsistency) {
			inv.quarantine = err
			inv.metrics.SetQuarantined(true)
			inv.log.Error("stock writes quarantined until reload", "err", err)
		}
		return err
	}
	for code, qty := range changes {
		inv.keyed.UpdateQuantity(code, qty)
		inv.ordered.UpdateQuantity(code, qty)
	}
	for _, m := range added {
		inv.keyed.Insert(m)
		inv.ordered.Insert(m)
	}
	inv.metrics.SetItems(inv.keyed.Len())
	return nil
}
