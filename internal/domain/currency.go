package domain

import (
	"strconv"
	"strings"
)

const rupeeSign = "₹"

// FormatINR renders whole rupees with Indian digit grouping: the last three digits, then pairs.
// 123456 becomes "₹1,23,456".
func FormatINR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return sign + rupeeSign + digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return sign + rupeeSign + strings.Join(groups, ",") + "," + tail
}

// FormatUSDAsINR converts a catalog price and formats it.
func FormatUSDAsINR(usd float64) string {
	return FormatINR(ConvertToINR(usd))
}
