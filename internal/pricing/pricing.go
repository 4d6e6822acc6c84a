// internal/pricing/pricing.go
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"heritagebackend/internal/catalog"
)

// Fixed Quebec sales tax rates applied after markups.
const (
	GSTRate = 0.05
	QSTRate = 0.09975
)

// ErrInvalidNumericInput is returned when a line item or rate carries a NaN
// or infinite value. The engine refuses to fold such values into a summary.
var ErrInvalidNumericInput = errors.New("invalid numeric input")

// Mode selects how a line item's amount is determined.
type Mode int

const (
	// Computed derives the amount from quantity × unit price.
	Computed Mode = iota
	// ManualOverride keeps the amount entered directly.
	ManualOverride
)

// LineItem is one priced task. Quantity and UnitPrice are clamped to be
// non-negative by the input layer before they reach this package.
type LineItem struct {
	Quantity  float64
	UnitPrice float64
	Amount    float64
	Mode      Mode
}

// Rates are the markup fractions applied to the raw work total. Bounds are
// enforced by the form layer; the engine accepts any non-negative fraction.
type Rates struct {
	Profit      float64 `json:"profit"`
	Admin       float64 `json:"admin"`
	Contingency float64 `json:"contingency"`
}

// Summary is the derived financial breakdown. It is always recomputed from
// the line items and rates, never edited directly.
type Summary struct {
	WorkTotal         float64 `json:"travaux"`
	AdminAmount       float64 `json:"administration"`
	ContingencyAmount float64 `json:"contingences"`
	ProfitAmount      float64 `json:"profit"`
	Subtotal          float64 `json:"sous_total"`
	GST               float64 `json:"tps"`
	QST               float64 `json:"tvq"`
	GrandTotal        float64 `json:"total"`
}

// ComputeAmount returns the effective amount of a line item. Computed items
// are always rederived from quantity × unit price so a stale stored amount
// can never leak into an aggregate.
func ComputeAmount(li LineItem) float64 {
	if li.Mode == ManualOverride {
		return li.Amount
	}
	return li.Quantity * li.UnitPrice
}

// CategorySubtotal sums the amounts of every item keyed under categoryID.
// Keys that do not carry the category prefix are skipped. Iteration is over
// sorted keys so repeated calls produce bit-identical results.
func CategorySubtotal(categoryID string, items map[string]LineItem) float64 {
	keys := sortedKeys(items)
	var total float64
	for _, key := range keys {
		if !catalog.BelongsTo(key, categoryID) {
			continue
		}
		total += ComputeAmount(items[key])
	}
	return total
}

// Summarize computes the full financial breakdown for a set of line items
// and markup rates. It fails rather than produce a NaN or infinite total.
func Summarize(items map[string]LineItem, rates Rates) (Summary, error) {
	if err := checkRates(rates); err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, key := range sortedKeys(items) {
		li := items[key]
		if !isFinite(li.Quantity) || !isFinite(li.UnitPrice) || !isFinite(li.Amount) {
			return Summary{}, fmt.Errorf("item %q: %w", key, ErrInvalidNumericInput)
		}
		s.WorkTotal += ComputeAmount(li)
	}

	s.AdminAmount = s.WorkTotal * rates.Admin
	s.ContingencyAmount = s.WorkTotal * rates.Contingency
	s.ProfitAmount = s.WorkTotal * rates.Profit
	s.Subtotal = s.WorkTotal + s.AdminAmount + s.ContingencyAmount + s.ProfitAmount
	s.GST = s.Subtotal * GSTRate
	s.QST = s.Subtotal * QSTRate
	s.GrandTotal = s.Subtotal + s.GST + s.QST

	if !isFinite(s.GrandTotal) {
		return Summary{}, fmt.Errorf("grand total: %w", ErrInvalidNumericInput)
	}
	return s, nil
}

func checkRates(rates Rates) error {
	for _, r := range []float64{rates.Profit, rates.Admin, rates.Contingency} {
		if !isFinite(r) {
			return fmt.Errorf("rates: %w", ErrInvalidNumericInput)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sortedKeys(items map[string]LineItem) []string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
