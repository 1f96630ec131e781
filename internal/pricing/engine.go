package pricing

// Money represents a monetary value stored in minor units. The deployed
// currency (JPY) has no decimal places, so the minor unit is the unit itself.
type Money = int64

// Item describes a line item used for totals calculation.
type Item struct {
	Name      string
	Qty       int
	UnitPrice Money
}

// LineTotal returns qty x unit price for the item.
func (it Item) LineTotal() Money {
	if it.Qty <= 0 {
		return 0
	}
	return Money(it.Qty) * it.UnitPrice
}

// Totals aggregates the computed pricing components for an order.
type Totals struct {
	Subtotal   Money  `json:"subtotal"`
	Tax        Money  `json:"tax"`
	Shipping   Money  `json:"shippingFee"`
	Discount   Money  `json:"discount"`
	GrandTotal Money  `json:"grandTotal"`
	Currency   string `json:"currency"`
	VATBps     int    `json:"vatBps,omitempty"`
}

// Compute calculates order totals from the provided line items and rates.
// vatBps is the VAT rate in basis points (1000 = 10%). Tax is rounded half up
// to the nearest minor unit; the grand total never goes below zero. The result
// is invariant under reordering of items, and the same value must be shown on
// screen, sent to the payment relay and printed on the invoice.
func Compute(items []Item, vatBps int, shipping, discount Money, currency string) Totals {
	var subtotal Money
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	if vatBps < 0 {
		vatBps = 0
	}
	if shipping < 0 {
		shipping = 0
	}
	if discount < 0 {
		discount = 0
	}
	tax := roundBps(subtotal, vatBps)
	total := subtotal + tax + shipping - discount
	if total < 0 {
		total = 0
	}
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Discount:   discount,
		GrandTotal: total,
		Currency:   currency,
		VATBps:     vatBps,
	}
}

// roundBps applies a basis-point rate with half-up rounding in integer space.
func roundBps(amount Money, bps int) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}
