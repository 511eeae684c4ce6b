package app

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/notify"
	"github.com/zestcart/zestcart/pkg/metrics"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// initJob starts the background scheduler, system gauges every 30s, an
// hourly low stock scan and a daily audit log purge.
func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@hourly", func() {
		go a.SchedLowStockScanTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.gormDB.
			Where("opt_time < ? ", time.Now().Add(-time.Hour*24*365)).
			Delete(domain.SysOprLog{})
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSystemMonitorTask samples host cpu and memory gauges.
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCpuuse, int64(cpuuse[0]*100))
	}

	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemuse, int64(meminfo.Used/1024/1024))
	}
}

// SchedProcessMonitorTask samples gauges of the server process itself.
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	pcpu, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCpuuse, int64(pcpu*100))
	}

	pmem, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemuse, int64(pmem.RSS/1024/1024))
	}
}

// SchedLowStockScanTask reports products at or below the configured
// stock threshold to the notify pipeline.
func (a *Application) SchedLowStockScanTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	threshold := a.GetSettingsInt64Value("inventory", "low_stock_threshold")
	if threshold <= 0 {
		threshold = 5
	}

	var products []domain.Product
	err := a.gormDB.
		Where("quantity <= ?", threshold).
		Order("quantity ASC").Limit(100).
		Find(&products).Error
	if err != nil {
		zap.S().Errorf("low stock scan error %s", err.Error())
		return
	}
	if len(products) == 0 {
		return
	}

	ev := notify.LowStockEvent{Products: make([]notify.LowStockProduct, 0, len(products))}
	for _, p := range products {
		ev.Products = append(ev.Products, notify.LowStockProduct{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
		})
	}
	if a.bus != nil {
		a.bus.Publish(notify.TopicLowStock, ev)
	}
	zap.L().Info("low stock scan finished", zap.Int("products", len(products)))
}
