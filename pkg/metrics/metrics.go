// Package metrics keeps operational gauges and counters in an embedded
// time series store under the app workdir.
package metrics

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

// Metric names written by the background jobs and the trade services.
const (
	SystemCpuuse  = "system_cpuuse"
	SystemMemuse  = "system_memuse"
	ProcessCpuuse = "process_cpuuse"
	ProcessMemuse = "process_memuse"
	OrdersCreated = "orders_created"
	OrdersRevenue = "orders_revenue"
	UsersSignup   = "users_signup"
)

var (
	storage  tstorage.Storage
	counters sync.Map
	initOnce sync.Once
)

// InitMetrics opens the metrics store below workdir/data/metrics.
func InitMetrics(workdir string) (err error) {
	initOnce.Do(func() {
		storage, err = tstorage.NewStorage(
			tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
			tstorage.WithTimestampPrecision(tstorage.Seconds),
			tstorage.WithRetention(time.Hour*24*30),
		)
	})
	return err
}

// SetGauge records the current value of a gauge metric.
func SetGauge(name string, value int64) {
	if storage == nil {
		return
	}
	err := storage.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
	if err != nil {
		zap.S().Errorf("insert metric %s error %s", name, err.Error())
	}
}

// IncrCounter adds delta to a monotonic counter and records the running total.
func IncrCounter(name string, delta int64) {
	val, _ := counters.LoadOrStore(name, new(int64))
	total := atomic.AddInt64(val.(*int64), delta)
	SetGauge(name, total)
}

// GetLatestValue returns the most recent datapoint of a metric within
// the past hour, zero when none was written.
func GetLatestValue(name string) float64 {
	points := SelectRange(name, time.Now().Add(-time.Hour).Unix(), time.Now().Unix())
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].Value
}

// SelectRange returns the datapoints of a metric between start and end
// unix seconds, oldest first.
func SelectRange(name string, start, end int64) []*tstorage.DataPoint {
	if storage == nil {
		return nil
	}
	points, err := storage.Select(name, nil, start, end)
	if err != nil {
		return nil
	}
	return points
}

// Close flushes the metrics store.
func Close() {
	if storage == nil {
		return
	}
	if err := storage.Close(); err != nil {
		zap.S().Errorf("close metrics storage error %s", err.Error())
	}
}
