package pricing

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestComputeAmount(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		want float64
	}{
		{"computed from quantity and price", LineItem{Quantity: 2, UnitPrice: 500, Mode: Computed}, 1000},
		{"computed ignores stored amount", LineItem{Quantity: 3, UnitPrice: 100, Amount: 9999, Mode: Computed}, 300},
		{"manual override keeps entered amount", LineItem{Quantity: 3, UnitPrice: 100, Amount: 450, Mode: ManualOverride}, 450},
		{"zero quantity", LineItem{Quantity: 0, UnitPrice: 500, Mode: Computed}, 0},
		{"fractional quantity", LineItem{Quantity: 2.5, UnitPrice: 40, Mode: Computed}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAmount(tt.item)
			if !almostEqual(got, tt.want) {
				t.Errorf("ComputeAmount(%+v) = %v, want %v", tt.item, got, tt.want)
			}
		})
	}
}

func TestCategorySubtotal(t *testing.T) {
	items := map[string]LineItem{
		"0_0-1":  {Quantity: 1, UnitPrice: 100, Mode: Computed},
		"0_0-2":  {Quantity: 2, UnitPrice: 50, Mode: Computed},
		"1_1-1":  {Quantity: 1, UnitPrice: 700, Mode: Computed},
		"6_6-1":  {Amount: 250, Mode: ManualOverride},
		"no-sep": {Quantity: 1, UnitPrice: 999, Mode: Computed},
	}

	if got := CategorySubtotal("0", items); !almostEqual(got, 200) {
		t.Errorf("category 0 subtotal = %v, want 200", got)
	}
	if got := CategorySubtotal("1", items); !almostEqual(got, 700) {
		t.Errorf("category 1 subtotal = %v, want 700", got)
	}
	if got := CategorySubtotal("6", items); !almostEqual(got, 250) {
		t.Errorf("category 6 subtotal = %v, want 250", got)
	}
	if got := CategorySubtotal("2", items); got != 0 {
		t.Errorf("empty category subtotal = %v, want 0", got)
	}

	// Repeated evaluation must not drift.
	first := CategorySubtotal("0", items)
	for i := 0; i < 10; i++ {
		if again := CategorySubtotal("0", items); again != first {
			t.Fatalf("subtotal drifted on call %d: %v != %v", i, again, first)
		}
	}
}

func TestSummarizeKnownBreakdown(t *testing.T) {
	// One line of 2 × $500 at the standard markup rates.
	items := map[string]LineItem{
		"1_1-2": {Quantity: 2, UnitPrice: 500, Mode: Computed},
	}
	rates := Rates{Profit: 0.15, Admin: 0.03, Contingency: 0.12}

	s, err := Summarize(items, rates)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"work total", s.WorkTotal, 1000},
		{"admin", s.AdminAmount, 30},
		{"contingency", s.ContingencyAmount, 120},
		{"profit", s.ProfitAmount, 150},
		{"subtotal", s.Subtotal, 1300},
		{"gst", s.GST, 65},
		{"qst", s.QST, 129.675},
		{"grand total", s.GrandTotal, 1494.675},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestSummarizeZeroRates(t *testing.T) {
	items := map[string]LineItem{
		"2_2-1": {Quantity: 4, UnitPrice: 25, Mode: Computed},
	}

	s, err := Summarize(items, Rates{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !almostEqual(s.Subtotal, s.WorkTotal) {
		t.Errorf("zero rates: subtotal %v should equal work total %v", s.Subtotal, s.WorkTotal)
	}
	wantTotal := s.Subtotal * (1 + GSTRate + QSTRate)
	if !almostEqual(s.GrandTotal, wantTotal) {
		t.Errorf("grand total %v, want %v", s.GrandTotal, wantTotal)
	}
}

func TestSummarizeEmptyItems(t *testing.T) {
	s, err := Summarize(map[string]LineItem{}, Rates{Profit: 0.15, Admin: 0.03, Contingency: 0.12})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.GrandTotal != 0 || s.WorkTotal != 0 {
		t.Errorf("empty quote should total zero, got %+v", s)
	}
}

func TestSummarizeDeterministicOrder(t *testing.T) {
	// Many small amounts whose float sum is order-sensitive. The summary
	// must come out bit-identical on every evaluation of the same map.
	items := make(map[string]LineItem)
	for _, li := range []struct {
		key   string
		price float64
	}{
		{"0_0-1", 0.1}, {"0_0-2", 0.2}, {"1_1-1", 0.3},
		{"3_3-1", 1e10}, {"4_4-1", 0.7}, {"6_6-2", 1e-10},
	} {
		items[li.key] = LineItem{Quantity: 1, UnitPrice: li.price, Mode: Computed}
	}
	rates := Rates{Profit: 0.15, Admin: 0.03, Contingency: 0.12}

	first, err := Summarize(items, rates)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Summarize(items, rates)
		if err != nil {
			t.Fatalf("Summarize: %v", err)
		}
		if again != first {
			t.Fatalf("summary changed between evaluations:\nfirst %+v\nagain %+v", first, again)
		}
	}
}

func TestSummarizeRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name  string
		items map[string]LineItem
		rates Rates
	}{
		{
			"NaN quantity",
			map[string]LineItem{"0_0-1": {Quantity: math.NaN(), UnitPrice: 10, Mode: Computed}},
			Rates{},
		},
		{
			"infinite unit price",
			map[string]LineItem{"0_0-1": {Quantity: 1, UnitPrice: math.Inf(1), Mode: Computed}},
			Rates{},
		},
		{
			"NaN manual amount",
			map[string]LineItem{"0_0-1": {Amount: math.NaN(), Mode: ManualOverride}},
			Rates{},
		},
		{
			"NaN rate",
			map[string]LineItem{"0_0-1": {Quantity: 1, UnitPrice: 10, Mode: Computed}},
			Rates{Profit: math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.items, tt.rates)
			if !errors.Is(err, ErrInvalidNumericInput) {
				t.Errorf("Summarize error = %v, want ErrInvalidNumericInput", err)
			}
		})
	}
}
