package invoice

import (
	"time"

	"github.com/minhvu-dev/sakura-store/internal/pricing"
)

// StoreProfile identifies the merchant on the invoice header.
type StoreProfile struct {
	Name     string
	Address  string
	Phone    string
	Email    string
	TaxID    string
	LogoPath string
}

// CustomerInfo is the buyer block. Optional fields are omitted from the
// rendered document when empty rather than printed as blank rows.
type CustomerInfo struct {
	Name       string
	Phone      string
	Email      string
	Address    string
	CustomerID string
}

// LineItem is one row of the invoice item table.
type LineItem struct {
	Name      string
	Qty       int64
	UnitPrice pricing.Money
	LineTotal pricing.Money
}

// Record is everything needed to render an invoice document. It is frozen at
// checkout time: later catalog or price changes never alter an issued invoice.
type Record struct {
	Number        string
	OrderID       string
	IssuedAt      time.Time
	Locale        string
	Store         StoreProfile
	Customer      CustomerInfo
	Items         []LineItem
	Totals        pricing.Totals
	PaymentMethod string
	Paid          bool
	Terms         string
	Thanks        string
	Signer        string
}
