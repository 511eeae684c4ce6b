package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/webserver"
)

type orderCreatePayload struct {
	ShippingAddress string `json:"shipping_address" validate:"required,min=5,max=500"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
}

// registerOrderRoutes registers checkout and order history endpoints
func registerOrderRoutes() {
	webserver.ApiPOST("/orders", createOrder)
	webserver.ApiGET("/orders", listOwnOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPATCH("/orders/:id/cancel", cancelOrder)
}

// createOrder converts the caller's cart into an order, reserving
// stock for every line in one transaction.
func createOrder(c echo.Context) error {
	var payload orderCreatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	order, err := GetAppContext(c).OrderService().Create(
		c.Request().Context(), currentUserID(c), payload.ShippingAddress, payload.Notes)
	if err != nil {
		return failError(c, err)
	}
	return webserver.Created(c, order)
}

func listOwnOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	rows, total, err := GetAppContext(c).OrderService().ListByUser(
		c.Request().Context(), currentUserID(c), page, pageSize)
	if err != nil {
		return failError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	order, err := GetAppContext(c).OrderService().Get(c.Request().Context(), id)
	if err != nil {
		return failError(c, err)
	}
	if !auth.CanViewOrder(currentClaims(c), order) {
		// hide existence of other accounts orders
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return ok(c, order)
}

func cancelOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}

	order, err := GetAppContext(c).OrderService().Cancel(c.Request().Context(), currentUserID(c), id)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, order)
}
