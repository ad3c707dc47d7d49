package infrastructure

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics exports Go runtime gauges through the OTel meter so the
// Prometheus endpoint carries process health next to the cleaning
// counters.
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcCount    metric.Int64Counter
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge

	lastGC uint32
}

// NewRuntimeMetrics registers the runtime instruments on the meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of live goroutines"),
	)
	if err != nil {
		return nil, err
	}
	heapAlloc, err := meter.Int64Gauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	heapSys, err := meter.Int64Gauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	gcCount, err := meter.Int64Counter(
		"runtime_gc_total",
		metric.WithDescription("Completed GC cycles"),
	)
	if err != nil {
		return nil, err
	}
	gcPause, err := meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Most recent GC pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64Gauge(
		"runtime_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		heapSys:    heapSys,
		gcCount:    gcCount,
		gcPause:    gcPause,
		uptime:     uptime,
	}, nil
}

// Record takes one runtime snapshot and writes it to the instruments.
func (rm *RuntimeMetrics) Record(ctx context.Context, startTime time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	rm.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
	rm.heapAlloc.Record(ctx, int64(mem.HeapAlloc))
	rm.heapSys.Record(ctx, int64(mem.HeapSys))
	rm.uptime.Record(ctx, time.Since(startTime).Seconds())

	// NumGC wraps; the counter wants the delta since the previous
	// snapshot.
	if delta := mem.NumGC - rm.lastGC; delta > 0 {
		rm.gcCount.Add(ctx, int64(delta))
		rm.gcPause.Record(ctx, time.Duration(mem.PauseNs[(mem.NumGC+255)%256]).Seconds())
	}
	rm.lastGC = mem.NumGC
}

// RuntimeMetricsCollector records runtime metrics on an interval until
// stopped.
type RuntimeMetricsCollector struct {
	metrics   *RuntimeMetrics
	interval  time.Duration
	startTime time.Time

	quit     chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

// NewRuntimeMetricsCollector creates a collector over the meter. An
// interval of zero falls back to thirty seconds.
func NewRuntimeMetricsCollector(meter metric.Meter, interval time.Duration) (*RuntimeMetricsCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RuntimeMetricsCollector{
		metrics:   metrics,
		interval:  interval,
		startTime: time.Now(),
		quit:      make(chan struct{}),
	}, nil
}

// Start launches the collection loop. The first snapshot records
// immediately so the endpoint is populated before the first tick.
func (c *RuntimeMetricsCollector) Start(ctx context.Context) {
	c.done.Add(1)
	go func() {
		defer c.done.Done()
		c.metrics.Record(ctx, c.startTime)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.metrics.Record(ctx, c.startTime)
			case <-c.quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the collection loop and waits for it to exit.
func (c *RuntimeMetricsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	c.done.Wait()
}
