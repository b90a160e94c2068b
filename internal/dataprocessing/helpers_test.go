package dataprocessing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/shared/testutil"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/domain"
)

func newTestLoader(t *testing.T) (*Loader, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	return NewLoader(logger, config.Default().Data), handler
}

func loadCSV(t *testing.T, content string) *domain.Dataset {
	t.Helper()
	loader, _ := newTestLoader(t)
	ds, err := loader.LoadReader(context.Background(), "po.csv", strings.NewReader(content))
	require.NoError(t, err)
	return ds
}

func scenario(t *testing.T) *domain.Dataset {
	t.Helper()
	ds := loadCSV(t, testutil.ScenarioCSV)
	require.Equal(t, 6, ds.Len())
	return ds
}

// rec builds a record for datasets assembled in code
func rec(supplier string, amount float64, date string) domain.Record {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	r := domain.Record{OrderDate: d, Amount: decimal.NewFromFloat(amount), SupplierName: supplier}
	r.Derive()
	return r
}

func datasetOf(records ...domain.Record) *domain.Dataset {
	return domain.NewDataset(domain.DatasetInfo{Source: "inline", Fingerprint: "inline"}, records)
}

func date(s string) *time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &d
}
