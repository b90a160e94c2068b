package dataprocessing

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

// Filter returns the records of ds matching spec. Constraints are ANDed;
// a constraint on a field excludes rows where that field is null. A status
// constraint is ignored when the source has no PO status column. An empty
// spec returns ds itself. The input is never modified.
func Filter(ds *domain.Dataset, spec domain.FilterSpec) *domain.Dataset {
	if ds == nil {
		return domain.EmptyDataset("")
	}
	if spec.IsEmpty() {
		return ds
	}

	match := compileFilter(spec, ds.Schema)
	kept := make([]domain.Record, 0, ds.Len())
	for _, r := range ds.All() {
		if match(&r) {
			kept = append(kept, r)
		}
	}

	return ds.Derive(FilteredFingerprint(ds.Fingerprint, spec), kept)
}

// FilteredFingerprint identifies the view of a dataset selected by spec
func FilteredFingerprint(parent string, spec domain.FilterSpec) string {
	key := spec.Key()
	if key == "" {
		return parent
	}
	sum := blake2b.Sum256([]byte(parent + "\x00" + key))
	return hex.EncodeToString(sum[:])
}

type predicate func(r *domain.Record) bool

func compileFilter(spec domain.FilterSpec, schema domain.SchemaMapping) predicate {
	var preds []predicate

	if spec.Start != nil {
		start := domain.DateOnly(*spec.Start)
		preds = append(preds, func(r *domain.Record) bool { return !r.OrderDate.Before(start) })
	}
	if spec.End != nil {
		end := domain.DateOnly(*spec.End)
		preds = append(preds, func(r *domain.Record) bool { return !r.OrderDate.After(end) })
	}

	preds = appendIn(preds, spec.Categories, func(r *domain.Record) domain.NullString { return r.Category })
	preds = appendIn(preds, spec.SubCategories, func(r *domain.Record) domain.NullString { return r.SubCategory })
	preds = appendIn(preds, spec.SupplierStates, func(r *domain.Record) domain.NullString { return r.SupplierState })
	preds = appendIn(preds, spec.SupplierCities, func(r *domain.Record) domain.NullString { return r.SupplierCity })
	preds = appendIn(preds, spec.Suppliers, func(r *domain.Record) domain.NullString { return domain.NewNullString(r.SupplierName) })
	if schema.Has(domain.FieldPOStatus) {
		preds = appendIn(preds, spec.POStatuses, func(r *domain.Record) domain.NullString { return r.POStatus })
	}

	return func(r *domain.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

func appendIn(preds []predicate, allowed []string, field func(*domain.Record) domain.NullString) []predicate {
	if len(allowed) == 0 {
		return preds
	}
	set := make(distinct, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}
	return append(preds, func(r *domain.Record) bool {
		v := field(r)
		return v.Valid && set.has(v.Value)
	})
}

// DateRange returns the inclusive bounds of a filter for display, falling
// back to the dataset's own extent for unset ends
func DateRange(ds *domain.Dataset, spec domain.FilterSpec) (start, end *time.Time) {
	summary := Summarize(ds)
	start, end = summary.DateMin, summary.DateMax
	if spec.Start != nil {
		s := domain.DateOnly(*spec.Start)
		start = &s
	}
	if spec.End != nil {
		e := domain.DateOnly(*spec.End)
		end = &e
	}
	return start, end
}
