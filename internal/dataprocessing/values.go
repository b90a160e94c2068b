package dataprocessing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// dateLayouts are tried in order; the first that parses wins
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06",
}

// parseAmount accepts plain decimals plus a leading "$" and thousands
// separators. Empty and non-numeric values (e.g. "N/A") are invalid.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	s = strings.TrimPrefix(s, "$")
	if strings.HasPrefix(s, "-") && !negative {
		negative = true
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// parseDate parses an order date and drops the time of day
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOnly(t), true
		}
	}
	return time.Time{}, false
}

// splitLocation reads a combined "City, State" value. State is the last
// comma segment and city the first, so "St. Paul, Ramsey, MN" gives
// ("St. Paul", "MN"). A value without a comma fills both.
func splitLocation(raw string) (city, state string) {
	parts := strings.Split(raw, ",")
	city = strings.TrimSpace(parts[0])
	state = strings.TrimSpace(parts[len(parts)-1])
	return city, state
}

func normalizeState(s string) domain.NullString {
	return domain.NewNullString(strings.ToUpper(strings.TrimSpace(s)))
}

func normalizeText(s string) domain.NullString {
	return domain.NewNullString(strings.TrimSpace(s))
}
