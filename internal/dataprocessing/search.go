package dataprocessing

import (
	"maps"
	"slices"
	"strings"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// SearchSuppliers returns the distinct supplier names containing query,
// case-insensitively, in sorted order. An empty query matches nothing.
func SearchSuppliers(ds *domain.Dataset, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []string{}
	}

	matches := distinct{}
	for _, r := range ds.All() {
		if strings.Contains(strings.ToLower(r.SupplierName), q) {
			matches.add(r.SupplierName)
		}
	}
	return slices.Sorted(maps.Keys(matches))
}
