package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// POHeader is the header row of the standard purchase-order export
const POHeader = "VSTX PO #,PO Order Date,Corcentric Supplier Name,Line Item Subtotal,Category,SubCategory,PO Status,State,SupplierCity,SupplierState"

// ScenarioCSV holds three suppliers:
//
//	Acme      600 over 3 rows, Widgets, TX
//	Bolt Co   400 over 2 rows, Widgets, NY
//	Iron Inc   50 over 1 row,  Gadgets, WA
//
// Monthly totals are Jan 500, Feb 350, Mar 200. Four rows are Closed.
const ScenarioCSV = POHeader + `
PO-1001,2024-01-15,Acme,200.00,Hardware,Widgets,Closed,CA,Austin,TX
PO-1002,2024-02-10,Acme,250.00,Hardware,Widgets,Closed,CA,Austin,TX
PO-1003,2024-03-05,Acme,150.00,Hardware,Widgets,Open,NV,Austin,TX
PO-1004,2024-01-20,Bolt Co,300.00,Hardware,Widgets,Closed,NY,Albany,NY
PO-1005,2024-02-25,Bolt Co,100.00,Hardware,Widgets,Open,NY,Albany,NY
PO-1006,2024-03-30,Iron Inc,50.00,Tools,Gadgets,Closed,WA,Seattle,WA
`

// LegacyLocationCSV uses the combined "Supplier City/State" column
const LegacyLocationCSV = `VSTX PO #,PO Order Date,Corcentric Supplier Name,Line Item Subtotal,Category,SubCategory,Supplier City/State
PO-1,01/05/2024,Acme,100,Hardware,Widgets,"Austin, tx"
PO-2,01/06/2024,Bolt Co,200,Hardware,Widgets,"St. Paul, Ramsey, mn "
PO-3,01/07/2024,Iron Inc,300,Tools,Gadgets,
`

// WriteFile writes content to name inside a temp directory and returns the path
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
