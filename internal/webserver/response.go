package webserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
)

// RestError carries a machine readable code plus a human message.
type RestError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RestResult is the envelope every endpoint responds with.
type RestResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *RestError  `json:"error,omitempty"`
}

// PageData wraps list responses with pagination totals.
type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// OK responds 200 with data inside the success envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, RestResult{Success: true, Data: data})
}

// Created responds 201 with data inside the success envelope.
func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, RestResult{Success: true, Data: data})
}

// Fail responds with an error envelope, optional details attached.
func Fail(c echo.Context, status int, code, message string, details ...interface{}) error {
	re := &RestError{Code: code, Message: message}
	if len(details) > 0 {
		re.Details = details[0]
	}
	return c.JSON(status, RestResult{Success: false, Error: re})
}

// Paged responds 200 with a paginated list envelope.
func Paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return OK(c, PageData{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// FailError maps service errors onto HTTP statuses and stable codes.
func FailError(c echo.Context, err error) error {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		details := map[string]interface{}{
			"product_id": stockErr.ProductID,
			"name":       stockErr.ProductName,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		}
		switch {
		case errors.Is(stockErr.Err, domain.ErrProductGone):
			return Fail(c, http.StatusConflict, "PRODUCT_GONE", stockErr.Error(), details)
		case errors.Is(stockErr.Err, domain.ErrOutOfStock):
			return Fail(c, http.StatusConflict, "OUT_OF_STOCK", stockErr.Error(), details)
		default:
			return Fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", stockErr.Error(), details)
		}
	}

	var transErr *domain.TransitionError
	if errors.As(err, &transErr) {
		return Fail(c, http.StatusConflict, "INVALID_TRANSITION", transErr.Error(),
			map[string]interface{}{"from": transErr.From, "to": transErr.To})
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return Fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return Fail(c, http.StatusForbidden, "FORBIDDEN", "operation not allowed")
	case errors.Is(err, domain.ErrItemNotFound):
		return Fail(c, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return Fail(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, domain.ErrEmptyCart):
		return Fail(c, http.StatusBadRequest, "EMPTY_CART", "cart is empty")
	case errors.Is(err, domain.ErrProductGone):
		return Fail(c, http.StatusConflict, "PRODUCT_GONE", err.Error())
	case errors.Is(err, domain.ErrOutOfStock):
		return Fail(c, http.StatusConflict, "OUT_OF_STOCK", err.Error())
	case errors.Is(err, domain.ErrInsufficient):
		return Fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, domain.ErrBadTransition):
		return Fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrConflict):
		return Fail(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrValidation):
		return Fail(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	}

	// The response hides the detail outside debug mode, the log always
	// carries it.
	zap.L().Error("internal error",
		zap.String("uri", c.Request().RequestURI), zap.Error(err))

	message := "internal server error"
	if GetAppContext(c).Config().System.Debug {
		message = err.Error()
	}
	return Fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
