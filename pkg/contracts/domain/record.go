// Package domain contains the purchase-order data model shared by the loader,
// the aggregation library and the API layer.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NullString is an optional text value. The zero value is null.
type NullString struct {
	Value string
	Valid bool
}

// NewNullString returns a valid NullString for non-empty input and null otherwise.
func NewNullString(s string) NullString {
	if s == "" {
		return NullString{}
	}
	return NullString{Value: s, Valid: true}
}

// String returns the value or "" when null
func (n NullString) String() string {
	if !n.Valid {
		return ""
	}
	return n.Value
}

// MarshalJSON renders null for an absent value
func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// UnmarshalJSON accepts a string or null
func (n *NullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullString{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*n = NewNullString(s)
	return nil
}

// Record is one purchase-order line item. Derived date fields are filled by Derive.
type Record struct {
	OrderDate     time.Time       `json:"order_date"`
	Amount        decimal.Decimal `json:"amount"`
	SupplierName  string          `json:"supplier_name"`
	SupplierCity  NullString      `json:"supplier_city"`
	SupplierState NullString      `json:"supplier_state"`
	ShipToState   NullString      `json:"ship_to_state"`
	Category      NullString      `json:"category"`
	SubCategory   NullString      `json:"subcategory"`
	PONumber      NullString      `json:"po_number"`
	POStatus      NullString      `json:"po_status"`

	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Quarter     int    `json:"quarter"`
	MonthLabel  string `json:"month_label"`
	YearMonth   string `json:"year_month"`
	YearQuarter string `json:"year_quarter"`
}

// Derive computes the calendar fields from OrderDate
func (r *Record) Derive() {
	d := r.OrderDate
	r.Year = d.Year()
	r.Month = int(d.Month())
	r.Quarter = (r.Month-1)/3 + 1
	r.MonthLabel = d.Format("January 2006")
	r.YearMonth = d.Format("2006-01")
	r.YearQuarter = fmt.Sprintf("%dQ%d", r.Year, r.Quarter)
}

// AmountFloat returns the amount as float64
func (r *Record) AmountFloat() float64 {
	return r.Amount.InexactFloat64()
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
