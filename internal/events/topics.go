package events

const (
	// TopicOrderPaid fires once payment is confirmed and the invoice exists.
	TopicOrderPaid = "order.paid"
	// TopicPaymentFailed fires when the processor declines or errors out.
	TopicPaymentFailed = "order.payment_failed"
)

// OrderPaid is the payload for TopicOrderPaid.
type OrderPaid struct {
	OrderID       string `json:"orderId"`
	InvoiceNumber string `json:"invoiceNumber"`
	SessionID     string `json:"sessionId"`
	GrandTotal    int64  `json:"grandTotal"`
	Currency      string `json:"currency"`
}

// PaymentFailed is the payload for TopicPaymentFailed.
type PaymentFailed struct {
	SessionID string `json:"sessionId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reason    string `json:"reason"`
}
