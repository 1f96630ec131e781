package invoice

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewNumber mints an invoice number like INV-4G7K2A.
func NewNumber() string {
	return "INV-" + randomSuffix(6)
}

// NewOrderID mints a fallback order id like ORD-9B3XQ1 for flows where the
// processor intent id is not available.
func NewOrderID() string {
	return "ORD-" + randomSuffix(6)
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("invoice: read random: %w", err))
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}
