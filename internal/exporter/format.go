package exporter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// FormatCurrency renders whole dollars with thousands separators, e.g.
// "$1,234,568". Negative values render as "-$1,234". Values beyond the
// int64 range keep every digit. NaN and infinities render as "$NaN",
// "$Inf" and "-$Inf".
func FormatCurrency(v float64) string {
	switch {
	case math.IsNaN(v):
		return "$NaN"
	case math.IsInf(v, 1):
		return "$Inf"
	case math.IsInf(v, -1):
		return "-$Inf"
	}

	rounded := math.RoundToEven(v)
	if rounded == 0 {
		return "$0"
	}
	digits := groupThousands(decimal.NewFromFloat(math.Abs(rounded)).StringFixed(0))
	if rounded < 0 {
		return "-$" + digits
	}
	return "$" + digits
}

// groupThousands inserts commas into a string of decimal digits
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatNumber renders an integer with thousands separators
func FormatNumber(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatPercentage renders v, already scaled to 0-100, with one decimal
func FormatPercentage(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// formatFloat formats a float64 for CSV output without trailing zeros
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// formatCell renders a raw table value as CSV text
func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case int:
		return formatInt(int64(x))
	case int64:
		return formatInt(x)
	case bool:
		return formatBool(x)
	case time.Time:
		return x.Format(time.DateOnly)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.DateOnly)
	case domain.NullString:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// workbookCell converts a raw value into something excelize stores natively.
// Dates are written as ISO text so they read back unchanged.
func workbookCell(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time, *time.Time, domain.NullString:
		return formatCell(x)
	}
	return v
}
