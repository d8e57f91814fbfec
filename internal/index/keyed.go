// Package index holds the two in-memory views of the stock file: a keyed
// lookup by medicine code and an ordered view used for listings and scans.
// Neither type is safe for concurrent use; the inventory package guards both
// with one lock.
package index

import "medstore/m/domain"

// InsertResult is the outcome of Keyed.Insert.
type InsertResult int

const (
	Inserted InsertResult = iota
	DuplicateKey
)

// UpdateResult is the outcome of a quantity update.
type UpdateResult int

const (
	Updated UpdateResult = iota
	NotFound
)

// Keyed maps a medicine code to its record. Records are stored by value so
// callers never hold a reference into the index.
type Keyed struct {
	records map[int]domain.Medicine
}

// NewKeyed sizes the table once for the expected inventory.
func NewKeyed(capacity int) *Keyed {
	if capacity < 0 {
		capacity = 0
	}
	return &Keyed{records: make(map[int]domain.Medicine, capacity)}
}

// Insert adds m unless its code is already present. An existing record is
// never overwritten.
func (k *Keyed) Insert(m domain.Medicine) InsertResult {
	if _, ok := k.records[m.Code]; ok {
		return DuplicateKey
	}
	k.records[m.Code] = m
	return Inserted
}

func (k *Keyed) Find(code int) (domain.Medicine, bool) {
	m, ok := k.records[code]
	return m, ok
}

func (k *Keyed) UpdateQuantity(code, qty int) UpdateResult {
	m, ok := k.records[code]
	if !ok {
		return NotFound
	}
	m.Quantity = qty
	k.records[code] = m
	return Updated
}

func (k *Keyed) Len() int { return len(k.records) }

// Codes returns every key in unspecified order.
func (k *Keyed) Codes() []int {
	codes := make([]int, 0, len(k.records))
	for code := range k.records {
		codes = append(codes, code)
	}
	return codes
}
