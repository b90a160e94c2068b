package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time view of the process, reported by the
// health endpoint
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RuntimeCollector periodically records Go runtime gauges
type RuntimeCollector struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	sys        metric.Int64Gauge
	uptime     metric.Float64Gauge

	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewRuntimeCollector creates the runtime gauges on meter
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	goroutines, err := meter.Int64Gauge("runtime_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}
	heapAlloc, err := meter.Int64Gauge("runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"), metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}
	sys, err := meter.Int64Gauge("runtime_sys_bytes",
		metric.WithDescription("Memory obtained from the OS"), metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sys gauge: %w", err)
	}
	uptime, err := meter.Float64Gauge("process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	return &RuntimeCollector{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		sys:        sys,
		uptime:     uptime,
		startTime:  time.Now(),
		interval:   interval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Collect reads runtime statistics and records them
func (c *RuntimeCollector) Collect(ctx context.Context) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / 1024 / 1024,
		SysMB:         float64(mem.Sys) / 1024 / 1024,
		GCCount:       mem.NumGC,
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}

	c.goroutines.Record(ctx, int64(stats.Goroutines))
	c.heapAlloc.Record(ctx, int64(mem.HeapAlloc))
	c.sys.Record(ctx, int64(mem.Sys))
	c.uptime.Record(ctx, stats.UptimeSeconds)

	return stats
}

// Start collects on every tick until Stop is called or ctx is done
func (c *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection; safe to call more than once
func (c *RuntimeCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
