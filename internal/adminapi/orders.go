package adminapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/order"
	"github.com/zestcart/zestcart/internal/webserver"
)

type orderStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
}

// registerAdminOrderRoutes registers order fulfilment routes
func registerAdminOrderRoutes() {
	webserver.AdminGET("/orders", listAllOrders)
	webserver.AdminGET("/orders/:id", getAnyOrder)
	webserver.AdminGET("/orders/export", exportOrders)
	webserver.AdminPATCH("/orders/:id/status", updateOrderStatus)
}

// orderQueryFromRequest builds the service query from the request,
// date bounds accept any common format.
func orderQueryFromRequest(c echo.Context) order.Query {
	page, pageSize := parsePagination(c)
	q := order.Query{
		Status:   strings.TrimSpace(c.QueryParam("status")),
		Sort:     strings.TrimSpace(c.QueryParam("sort")),
		Desc:     !strings.EqualFold(c.QueryParam("order"), "ASC"),
		Page:     page,
		PageSize: pageSize,
	}
	if uid := strings.TrimSpace(c.QueryParam("user_id")); uid != "" {
		if v, err := strconv.ParseInt(uid, 10, 64); err == nil {
			q.UserID = v
		}
	}
	if from := strings.TrimSpace(c.QueryParam("created_from")); from != "" {
		if t, err := dateparse.ParseAny(from); err == nil {
			q.CreatedFrom = t
		}
	}
	if to := strings.TrimSpace(c.QueryParam("created_to")); to != "" {
		if t, err := dateparse.ParseAny(to); err == nil {
			q.CreatedTo = t
		}
	}
	return q
}

// listAllOrders retrieves orders across all accounts
// @Summary list orders
// @Tags Orders
// @Param page query int false "Page number"
// @Param perPage query int false "Items per page"
// @Param status query string false "Status filter"
// @Param user_id query string false "Account filter"
// @Param created_from query string false "Created lower bound"
// @Param created_to query string false "Created upper bound"
// @Router /api/v1/admin/orders [get]
func listAllOrders(c echo.Context) error {
	q := orderQueryFromRequest(c)
	rows, total, err := GetAppContext(c).OrderService().List(c.Request().Context(), q)
	if err != nil {
		return failError(c, err)
	}
	return paged(c, rows, total, q.Page, q.PageSize)
}

func getAnyOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	o, err := GetAppContext(c).OrderService().Get(c.Request().Context(), id)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, o)
}

func updateOrderStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	var payload orderStatusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	o, err := GetAppContext(c).OrderService().UpdateStatus(c.Request().Context(), id, payload.Status)
	if err != nil {
		return failError(c, err)
	}

	logOperation(c, "order_status", fmt.Sprintf("order %d set to %s", id, payload.Status))
	return ok(c, o)
}

// exportOrders streams the filtered order list as an xlsx workbook.
func exportOrders(c echo.Context) error {
	q := orderQueryFromRequest(c)
	q.Page = 1
	q.PageSize = 10000
	rows, _, err := GetAppContext(c).OrderService().List(c.Request().Context(), q)
	if err != nil {
		return failError(c, err)
	}

	sheet := "Orders"
	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", sheet)

	headers := []string{"Order ID", "User ID", "Status", "Total", "Item Count", "Shipping Address", "Created At"}
	for i, h := range headers {
		xlsx.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(i)), h)
	}

	for i, o := range rows {
		row := i + 2
		count := 0
		for _, item := range o.Items {
			count += item.Quantity
		}
		xlsx.SetCellValue(sheet, fmt.Sprintf("A%d", row), strconv.FormatInt(o.ID, 10))
		xlsx.SetCellValue(sheet, fmt.Sprintf("B%d", row), strconv.FormatInt(o.UserID, 10))
		xlsx.SetCellValue(sheet, fmt.Sprintf("C%d", row), o.Status)
		xlsx.SetCellValue(sheet, fmt.Sprintf("D%d", row), o.Total)
		xlsx.SetCellValue(sheet, fmt.Sprintf("E%d", row), count)
		xlsx.SetCellValue(sheet, fmt.Sprintf("F%d", row), o.ShippingAddress)
		xlsx.SetCellValue(sheet, fmt.Sprintf("G%d", row), o.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)

	logOperation(c, "order_export", fmt.Sprintf("exported %d orders", len(rows)))
	return xlsx.Write(c.Response())
}
