package invoice

import (
	"strconv"
	"strings"

	"github.com/minhvu-dev/sakura-store/internal/pricing"
)

// zeroDecimal lists currencies whose minor unit equals the major unit.
var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// FormatMoney renders a minor-unit amount for display, e.g. ¥1,234 for JPY.
// Amounts in zero-decimal currencies print without a fraction; others print
// two decimal places.
func FormatMoney(amount pricing.Money, currency string) string {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	negative := amount < 0
	if negative {
		amount = -amount
	}

	var body string
	if zeroDecimal[cur] {
		body = groupThousands(strconv.FormatInt(int64(amount), 10))
	} else {
		major := amount / 100
		minor := amount % 100
		body = groupThousands(strconv.FormatInt(int64(major), 10)) + "." + pad2(int64(minor))
	}

	var out string
	switch cur {
	case "JPY":
		out = "¥" + body
	case "USD":
		out = "$" + body
	case "VND":
		out = body + "₫"
	default:
		out = body + " " + cur
	}
	if negative {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
