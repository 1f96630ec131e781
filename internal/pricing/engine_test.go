package pricing

import (
	"math/rand"
	"testing"
)

func TestComputeScenario(t *testing.T) {
	// 2 x 100 at 10% VAT with a 500 shipping fee.
	items := []Item{{Name: "Product 1", Qty: 2, UnitPrice: 100}}
	totals := Compute(items, 1000, 500, 0, "JPY")
	if totals.Subtotal != 200 {
		t.Fatalf("expected subtotal 200, got %d", totals.Subtotal)
	}
	if totals.Tax != 20 {
		t.Fatalf("expected tax 20, got %d", totals.Tax)
	}
	if totals.GrandTotal != 720 {
		t.Fatalf("expected grand total 720, got %d", totals.GrandTotal)
	}
}

func TestComputeEmptyItems(t *testing.T) {
	totals := Compute(nil, 1000, 300, 0, "JPY")
	if totals.Subtotal != 0 || totals.Tax != 0 {
		t.Fatalf("expected zero subtotal and tax, got %+v", totals)
	}
	if totals.GrandTotal != 300 {
		t.Fatalf("expected grand total 300, got %d", totals.GrandTotal)
	}
}

func TestComputeDiscountFloorsAtZero(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 100}}
	totals := Compute(items, 0, 0, 10_000, "JPY")
	if totals.GrandTotal != 0 {
		t.Fatalf("expected grand total clamped to 0, got %d", totals.GrandTotal)
	}
}

func TestComputeNegativeInputsIgnored(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: 200}, {Qty: -1, UnitPrice: 999}}
	totals := Compute(items, -5, -100, -50, "JPY")
	if totals.Subtotal != 600 {
		t.Fatalf("expected subtotal 600, got %d", totals.Subtotal)
	}
	if totals.Tax != 0 || totals.Shipping != 0 || totals.Discount != 0 {
		t.Fatalf("expected sanitised rates, got %+v", totals)
	}
	if totals.GrandTotal != 600 {
		t.Fatalf("expected grand total 600, got %d", totals.GrandTotal)
	}
}

func TestComputeTaxRoundsHalfUp(t *testing.T) {
	// 10% of 105 is 10.5, which rounds up to 11.
	totals := Compute([]Item{{Qty: 1, UnitPrice: 105}}, 1000, 0, 0, "JPY")
	if totals.Tax != 11 {
		t.Fatalf("expected tax 11, got %d", totals.Tax)
	}
}

func TestComputeOrderIndependent(t *testing.T) {
	items := []Item{
		{Name: "a", Qty: 2, UnitPrice: 137},
		{Name: "b", Qty: 5, UnitPrice: 901},
		{Name: "c", Qty: 1, UnitPrice: 49},
		{Name: "d", Qty: 3, UnitPrice: 650},
	}
	want := Compute(items, 1000, 500, 120, "JPY")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := append([]Item(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Compute(shuffled, 1000, 500, 120, "JPY")
		if got != want {
			t.Fatalf("totals changed under reordering: %+v vs %+v", got, want)
		}
	}
}
