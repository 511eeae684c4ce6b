package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/order"
	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/metrics"
)

// registerDashboardRoutes registers back office statistics routes
func registerDashboardRoutes() {
	webserver.AdminGET("/dashboard", getDashboard)
	webserver.AdminGET("/metrics/:name", getMetricRange)
}

// getDashboard summarizes store activity: order pipeline, revenue
// statistics over the last 30 days, low stock listings and the host
// gauges sampled by the monitor jobs.
func getDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	db := GetDB(c)
	repo := order.NewGormOrderRepository(db)

	statusCounts, err := repo.StatusCounts(ctx)
	if err != nil {
		return failError(c, err)
	}

	totals, err := repo.TotalsSince(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return failError(c, err)
	}

	revenue := map[string]float64{}
	if len(totals) > 0 {
		sum, _ := stats.Sum(totals)
		mean, _ := stats.Mean(totals)
		median, _ := stats.Median(totals)
		p95, _ := stats.Percentile(totals, 95)
		revenue["sum"] = sum
		revenue["mean"] = mean
		revenue["median"] = median
		revenue["p95"] = p95
	}

	appCtx := GetAppContext(c)
	threshold := appCtx.GetSettingsInt64Value("inventory", "low_stock_threshold")
	if threshold <= 0 {
		threshold = 5
	}
	var lowStock []domain.Product
	db.Where("quantity <= ?", threshold).Order("quantity ASC").Limit(20).Find(&lowStock)

	var userCount, productCount, orderCount int64
	db.Model(&domain.User{}).Count(&userCount)
	db.Model(&domain.Product{}).Count(&productCount)
	db.Model(&domain.Order{}).Count(&orderCount)

	return ok(c, map[string]interface{}{
		"orders_by_status": statusCounts,
		"revenue_30d":      revenue,
		"low_stock":        lowStock,
		"counts": map[string]int64{
			"users":    userCount,
			"products": productCount,
			"orders":   orderCount,
		},
		"gauges": map[string]float64{
			metrics.SystemCpuuse:  metrics.GetLatestValue(metrics.SystemCpuuse),
			metrics.SystemMemuse:  metrics.GetLatestValue(metrics.SystemMemuse),
			metrics.ProcessCpuuse: metrics.GetLatestValue(metrics.ProcessCpuuse),
			metrics.ProcessMemuse: metrics.GetLatestValue(metrics.ProcessMemuse),
			metrics.OrdersCreated: metrics.GetLatestValue(metrics.OrdersCreated),
			metrics.UsersSignup:   metrics.GetLatestValue(metrics.UsersSignup),
		},
		"uptime_seconds": int64(webserver.Uptime().Seconds()),
	})
}

// getMetricRange returns raw datapoints for one metric, defaults to
// the last 24 hours.
func getMetricRange(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	allowed := map[string]bool{
		metrics.SystemCpuuse:  true,
		metrics.SystemMemuse:  true,
		metrics.ProcessCpuuse: true,
		metrics.ProcessMemuse: true,
		metrics.OrdersCreated: true,
		metrics.OrdersRevenue: true,
		metrics.UsersSignup:   true,
	}
	if !allowed[name] {
		return fail(c, http.StatusNotFound, "METRIC_NOT_FOUND", "Unknown metric name", nil)
	}

	end := time.Now().Unix()
	start := time.Now().Add(-24 * time.Hour).Unix()
	if v := c.QueryParam("start"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			start = ts
		}
	}
	if v := c.QueryParam("end"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			end = ts
		}
	}

	points := metrics.SelectRange(name, start, end)
	return ok(c, map[string]interface{}{"name": name, "points": points})
}
