package billing

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"medstore/m/domain"
	"medstore/m/internal/inventory"
)

// State is where a bill is in its lifecycle.
type State string

const (
	StateCollecting State = "collecting"
	StateValidating State = "validating"
	StateCommitting State = "committing"
	StateRecorded   State = "recorded"
	StateRejected   State = "rejected"
)

const (
	MaxItems        = 50
	MaxCustomerName = 49
)

// Request is a bill as submitted: parallel lists of codes and quantities,
// still unparsed.
type Request struct {
	CustomerName string   `json:"customer_name"`
	Codes        []string `json:"codes"`
	Quantities   []string `json:"quantities"`
}

// Item is one line of a bill while it is checked and committed.
type Item struct {
	Position         int             `json:"position"`
	Code             int             `json:"code"`
	Quantity         int             `json:"quantity"`
	Found            bool            `json:"found"`
	Sufficient       bool            `json:"sufficient"`
	Name             string          `json:"name,omitempty"`
	Price            decimal.Decimal `json:"price"`
	OriginalQuantity int             `json:"original_quantity"`
	NewQuantity      int             `json:"new_quantity"`
	Problem          string          `json:"problem,omitempty"`
}

// RejectedError is returned for any bill that did not reach the ledger. It
// carries every problem found, not just the first, and unwraps to the
// matching domain errors.
type RejectedError struct {
	Stage    State    `json:"stage"`
	Items    []Item   `json:"items,omitempty"`
	Problems []string `json:"problems"`
	causes   []error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("bill rejected while %s: %s", e.Stage, strings.Join(e.Problems, "; "))
}

func (e *RejectedError) Unwrap() []error { return e.causes }

func (e *RejectedError) add(cause error, problem string) {
	e.Problems = append(e.Problems, problem)
	for _, c := range e.causes {
		if c == cause {
			return
		}
	}
	e.causes = append(e.causes, cause)
}

func (e *RejectedError) empty() bool { return len(e.Problems) == 0 }

// collect parses the request. Every item is checked so the caller sees all
// input problems at once.
func collect(req Request) (string, []Item, *RejectedError) {
	rej := &RejectedError{Stage: StateCollecting}

	name := strings.TrimSpace(req.CustomerName)
	if utf8.RuneCountInString(name) > MaxCustomerName {
		name = string([]rune(name)[:MaxCustomerName])
	}
	switch {
	case name == "":
		rej.add(domain.ErrValidation, "customer name is required")
	case strings.IndexFunc(name, badNameRune) >= 0:
		rej.add(domain.ErrValidation, "customer name contains invalid characters")
	}

	n := len(req.Codes)
	switch {
	case n == 0 || len(req.Quantities) == 0:
		rej.add(domain.ErrValidation, "no items")
		return name, nil, rej
	case n != len(req.Quantities):
		rej.add(domain.ErrValidation, fmt.Sprintf("got %d codes but %d quantities", n, len(req.Quantities)))
		return name, nil, rej
	case n > MaxItems:
		rej.add(domain.ErrValidation, fmt.Sprintf("a bill holds at most %d items, got %d", MaxItems, n))
		return name, nil, rej
	}

	items := make([]Item, n)
	for i := range items {
		it := &items[i]
		it.Position = i + 1
		var problems []string
		code, problem := positive(req.Codes[i])
		if problem != "" {
			problems = append(problems, fmt.Sprintf("item %d: %s code %q", it.Position, problem, req.Codes[i]))
		}
		qty, qtyProblem := positive(req.Quantities[i])
		if qtyProblem != "" {
			label := fmt.Sprintf("item %d", it.Position)
			if problem == "" {
				label = fmt.Sprintf("item %d (code %d)", it.Position, code)
			}
			problems = append(problems, fmt.Sprintf("%s: %s quantity %q", label, qtyProblem, req.Quantities[i]))
		}
		for _, p := range problems {
			rej.add(domain.ErrValidation, p)
		}
		it.Code, it.Quantity = code, qty
		it.Problem = strings.Join(problems, "; ")
	}
	if !rej.empty() {
		rej.Items = items
		return name, items, rej
	}
	return name, items, nil
}

func badNameRune(r rune) bool {
	return r == '<' || r == '>' || r == '"' || unicode.IsControl(r)
}

func positive(s string) (int, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "missing"
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, "bad"
	}
	return v, ""
}

// validate resolves every item against stock. Items that repeat a code draw
// on what the earlier items left. The returned map holds the final quantity
// per code and is only meaningful when the error is nil.
func validate(v inventory.View, items []Item) (map[int]int, *RejectedError) {
	rej := &RejectedError{Stage: StateValidating, Items: items}
	remaining := make(map[int]int, len(items))

	for i := range items {
		it := &items[i]
		m, ok := v.Find(it.Code)
		if !ok {
			it.Problem = fmt.Sprintf("code %d not found", it.Code)
			rej.add(domain.ErrNotFound, it.Problem)
			continue
		}
		it.Found = true
		it.Name = m.Name
		it.Price = m.Price

		have, seen := remaining[it.Code]
		if !seen {
			have = m.Quantity
		}
		it.OriginalQuantity = have
		if have < it.Quantity {
			it.NewQuantity = have
			it.Problem = fmt.Sprintf("insufficient %q (code %d): has %d, requested %d", m.Name, it.Code, have, it.Quantity)
			rej.add(domain.ErrInsufficientStock, it.Problem)
			remaining[it.Code] = have
			continue
		}
		it.Sufficient = true
		it.NewQuantity = have - it.Quantity
		remaining[it.Code] = it.NewQuantity
	}
	if !rej.empty() {
		return nil, rej
	}
	return remaining, nil
}

// commitRejection wraps a failed or refused stock commit.
func commitRejection(items []Item, err error) *RejectedError {
	rej := &RejectedError{Stage: StateCommitting, Items: items}
	rej.add(err, err.Error())
	return rej
}
