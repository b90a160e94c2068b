package domain

import (
	"encoding/csv"
	"slices"
	"strings"
	"time"
)

// FilterSpec selects records. Unset or empty constraints include everything.
// Constraints combine with AND; values inside one constraint combine with OR.
type FilterSpec struct {
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	Categories     []string   `json:"categories,omitempty"`
	SubCategories  []string   `json:"subcategories,omitempty"`
	SupplierStates []string   `json:"supplier_states,omitempty"`
	SupplierCities []string   `json:"supplier_cities,omitempty"`
	Suppliers      []string   `json:"suppliers,omitempty"`
	POStatuses     []string   `json:"po_statuses,omitempty"`
}

// IsEmpty reports whether the filter has no active constraint
func (s FilterSpec) IsEmpty() bool {
	return s.Start == nil && s.End == nil &&
		len(s.Categories) == 0 && len(s.SubCategories) == 0 &&
		len(s.SupplierStates) == 0 && len(s.SupplierCities) == 0 &&
		len(s.Suppliers) == 0 && len(s.POStatuses) == 0
}

// Key returns a canonical serialization. Two specs that select the same
// records produce the same key regardless of value order or duplicates.
func (s FilterSpec) Key() string {
	if s.IsEmpty() {
		return ""
	}

	var b strings.Builder
	if s.Start != nil {
		b.WriteString("start=" + DateOnly(*s.Start).Format(time.DateOnly) + ";")
	}
	if s.End != nil {
		b.WriteString("end=" + DateOnly(*s.End).Format(time.DateOnly) + ";")
	}
	writeSet(&b, "category", s.Categories)
	writeSet(&b, "subcategory", s.SubCategories)
	writeSet(&b, "state", s.SupplierStates)
	writeSet(&b, "city", s.SupplierCities)
	writeSet(&b, "supplier", s.Suppliers)
	writeSet(&b, "status", s.POStatuses)
	return b.String()
}

func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	b.WriteString(name + "=" + strings.Join(sorted, "\x1f") + ";")
}

// SplitValues splits a comma-separated filter value into trimmed, non-blank
// values. A value containing a comma can be double-quoted, as in a CSV
// field: `"Smith, Jones & Co",Acme`. Input that is not valid CSV is split
// on every comma.
func SplitValues(s string) []string {
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	fields, err := r.ReadAll()
	if err != nil {
		fields = [][]string{strings.Split(s, ",")}
	}

	var out []string
	for _, record := range fields {
		for _, v := range record {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
