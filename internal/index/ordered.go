package index

import (
	"log/slog"
	"strings"

	"github.com/google/btree"

	"medstore/m/domain"
)

const btreeDegree = 16

// Ordered keeps records sorted by code. It is a B-tree rather than a plain
// binary search tree so mostly sorted loads do not degrade into a chain.
type Ordered struct {
	tree *btree.BTreeG[domain.Medicine]
	log  *slog.Logger
}

func byCode(a, b domain.Medicine) bool { return a.Code < b.Code }

func NewOrdered(log *slog.Logger) *Ordered {
	if log == nil {
		log = slog.Default()
	}
	return &Ordered{tree: btree.NewG(btreeDegree, byCode), log: log}
}

// Insert adds m and reports whether it was new. Duplicates are logged and
// ignored; the keyed index decides what gets in.
func (o *Ordered) Insert(m domain.Medicine) bool {
	if o.tree.Has(m) {
		o.log.Warn("duplicate code in ordered index ignored", "code", m.Code)
		return false
	}
	o.tree.ReplaceOrInsert(m)
	return true
}

func (o *Ordered) FindByCode(code int) (domain.Medicine, bool) {
	return o.tree.Get(domain.Medicine{Code: code})
}

func (o *Ordered) UpdateQuantity(code, qty int) UpdateResult {
	m, ok := o.tree.Get(domain.Medicine{Code: code})
	if !ok {
		return NotFound
	}
	m.Quantity = qty
	o.tree.ReplaceOrInsert(m)
	return Updated
}

// Ascend visits records in ascending code order until visit returns false.
func (o *Ordered) Ascend(visit func(domain.Medicine) bool) {
	o.tree.Ascend(btree.ItemIteratorG[domain.Medicine](visit))
}

// FindByNameSubstring returns records whose name contains query, ignoring
// case, in ascending code order. An empty query matches everything.
func (o *Ordered) FindByNameSubstring(query string) []domain.Medicine {
	needle := strings.ToLower(query)
	var out []domain.Medicine
	o.Ascend(func(m domain.Medicine) bool {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			out = append(out, m)
		}
		return true
	})
	return out
}

func (o *Ordered) Len() int { return o.tree.Len() }
