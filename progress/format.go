package progress

import (
	"fmt"
	"strings"
)

// formatCount renders an integer with thousands separators, e.g. 1234567
// becomes "1,234,567".
func formatCount(n uint64) string {
	digits := fmt.Sprintf("%d", n)
	return groupThousands(digits)
}

// formatFloat renders a float with exactly two decimal places and thousands
// separators on the integer part, e.g. 12345.678 becomes "12,345.68".
func formatFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(whole) + "." + frac
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
