package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/webserver"
)

type cartAddPayload struct {
	ProductID int64 `json:"product_id,string" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type cartUpdatePayload struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// registerCartRoutes registers shopping cart endpoints, all scoped to
// the authenticated account
func registerCartRoutes() {
	webserver.ApiGET("/cart", getCart)
	webserver.ApiPOST("/cart/items", addCartItem)
	webserver.ApiPUT("/cart/items/:id", updateCartItem)
	webserver.ApiDELETE("/cart/items/:id", removeCartItem)
	webserver.ApiDELETE("/cart", clearCart)
}

func getCart(c echo.Context) error {
	crt, err := GetAppContext(c).CartService().Get(c.Request().Context(), currentUserID(c))
	if err != nil {
		return failError(c, err)
	}
	return ok(c, crt)
}

func addCartItem(c echo.Context) error {
	var payload cartAddPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	crt, err := GetAppContext(c).CartService().AddItem(
		c.Request().Context(), currentUserID(c), payload.ProductID, payload.Quantity)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, crt)
}

func updateCartItem(c echo.Context) error {
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}

	var payload cartUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	crt, err := GetAppContext(c).CartService().UpdateItem(
		c.Request().Context(), currentUserID(c), itemID, payload.Quantity)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, crt)
}

func removeCartItem(c echo.Context) error {
	itemID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid cart item ID", nil)
	}

	crt, err := GetAppContext(c).CartService().RemoveItem(c.Request().Context(), currentUserID(c), itemID)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, crt)
}

func clearCart(c echo.Context) error {
	crt, err := GetAppContext(c).CartService().Clear(c.Request().Context(), currentUserID(c))
	if err != nil {
		return failError(c, err)
	}
	return ok(c, crt)
}
