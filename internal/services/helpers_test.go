package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/cache"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/dataprocessing"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/exporter"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/shared/testutil"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/events"
)

// MockEventPublisher is a mock for EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent) {
	m.Called(ctx, msgType, event)
}

type memoryArchiver struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (a *memoryArchiver) Save(name string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saved == nil {
		a.saved = map[string][]byte{}
	}
	a.saved[name] = data
	return "/uploads/" + name, nil
}

func newTestService(t *testing.T, opts ...Option) (*DataService, *testutil.BufferedSlogHandler) {
	t.Helper()

	logger, handler := testutil.NewTestLogger(t)
	cfg := config.Default()

	memo := cache.New(config.CacheConfig{TTL: time.Minute, MaxEntries: 128})
	t.Cleanup(memo.Stop)

	loader := dataprocessing.NewLoader(logger, cfg.Data)
	reports := exporter.NewReportBuilder(logger, cfg.Analysis, cfg.Data.MaxExportRows)

	return NewDataService(loader, memo, reports, cfg.Analysis, logger, opts...), handler
}

// loadedService returns a service holding the scenario dataset
func loadedService(t *testing.T, opts ...Option) (*DataService, *testutil.BufferedSlogHandler) {
	t.Helper()

	svc, handler := newTestService(t, opts...)
	path := testutil.WriteFile(t, "po.csv", testutil.ScenarioCSV)
	ds, err := svc.LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 6, ds.Len())
	return svc, handler
}

func upload(t *testing.T, svc *DataService, content string) error {
	t.Helper()
	_, err := svc.Replace(context.Background(), "upload.csv", strings.NewReader(content))
	return err
}
