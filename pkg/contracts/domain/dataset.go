package domain

import (
	"iter"
	"slices"
	"time"
)

// Field identifies a semantic column independent of its source header.
type Field string

const (
	FieldDate          Field = "date"
	FieldAmount        Field = "amount"
	FieldSupplier      Field = "supplier"
	FieldCategory      Field = "category"
	FieldSubCategory   Field = "subcategory"
	FieldPONumber      Field = "po_number"
	FieldPOStatus      Field = "po_status"
	FieldShipToState   Field = "ship_to_state"
	FieldSupplierState Field = "supplier_state"
	FieldSupplierCity  Field = "supplier_city"
)

// SchemaMapping records which source header fed each semantic field.
// A field missing from Columns was absent from the source.
type SchemaMapping struct {
	Columns        map[Field]string `json:"columns"`
	LegacyLocation bool             `json:"legacy_location"`
}

// Has reports whether the source carried the field
func (s SchemaMapping) Has(f Field) bool {
	_, ok := s.Columns[f]
	return ok
}

// DropReason names why a source row was discarded during load
type DropReason string

const (
	DropInvalidAmount DropReason = "invalid_amount"
	DropInvalidDate   DropReason = "invalid_date"

	// DropMalformedRow counts CSV lines the reader could not split into fields
	DropMalformedRow DropReason = "malformed_row"
)

// LoadReport counts what happened to the source rows
type LoadReport struct {
	RowsRead int                `json:"rows_read"`
	RowsKept int                `json:"rows_kept"`
	Dropped  map[DropReason]int `json:"dropped"`
}

// TotalDropped sums dropped rows across reasons
func (r LoadReport) TotalDropped() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// DatasetInfo is the metadata shared by a dataset and every view filtered from it
type DatasetInfo struct {
	Source      string        `json:"source"`
	Fingerprint string        `json:"fingerprint"`
	Schema      SchemaMapping `json:"schema"`
	Report      LoadReport    `json:"load_report"`
	LoadedAt    time.Time     `json:"loaded_at"`
}

// Dataset is an ordered, immutable collection of records sharing one schema.
type Dataset struct {
	DatasetInfo
	records []Record
	root    string
}

// NewDataset takes ownership of records. Callers must not modify the slice afterwards.
func NewDataset(info DatasetInfo, records []Record) *Dataset {
	if info.Schema.Columns == nil {
		info.Schema.Columns = map[Field]string{}
	}
	if info.Report.Dropped == nil {
		info.Report.Dropped = map[DropReason]int{}
	}
	return &Dataset{DatasetInfo: info, records: records}
}

// EmptyDataset returns a dataset with no records for the given source
func EmptyDataset(source string) *Dataset {
	return NewDataset(DatasetInfo{Source: source, LoadedAt: time.Now().UTC()}, nil)
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// IsEmpty reports whether the dataset has no records
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// All iterates records in order. Records are yielded by value.
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		if d == nil {
			return
		}
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Records returns a copy of the records
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

// At returns the i-th record
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// Derive builds a new dataset sharing this dataset's metadata with a new
// fingerprint. The load report still describes the original source.
func (d *Dataset) Derive(fingerprint string, records []Record) *Dataset {
	info := d.DatasetInfo
	info.Fingerprint = fingerprint
	derived := NewDataset(info, records)
	derived.root = d.RootFingerprint()
	return derived
}

// RootFingerprint is the fingerprint of the loaded dataset this one was
// derived from, or its own fingerprint when it was loaded directly
func (d *Dataset) RootFingerprint() string {
	if d == nil {
		return ""
	}
	if d.root != "" {
		return d.root
	}
	return d.Fingerprint
}
