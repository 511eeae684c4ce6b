// Package storeapi implements the storefront REST endpoints used by
// customers and vendors: accounts, catalog browsing, carts, checkout,
// orders and product reviews.
package storeapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/app"
	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/webserver"
)

func ok(c echo.Context, data interface{}) error {
	return webserver.OK(c, data)
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	if details == nil {
		return webserver.Fail(c, status, code, message)
	}
	return webserver.Fail(c, status, code, message, details)
}

func failError(c echo.Context, err error) error {
	return webserver.FailError(c, err)
}

func paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return webserver.Paged(c, items, total, page, pageSize)
}

func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetDB(c)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func currentClaims(c echo.Context) *auth.Claims {
	return webserver.GetCurrentClaims(c)
}

func currentUserID(c echo.Context) int64 {
	claims := currentClaims(c)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

// currentUser loads the account row behind the verified token. A valid
// token whose account has been removed or disabled is treated as
// unauthenticated.
func currentUser(c echo.Context) (*domain.User, error) {
	claims := currentClaims(c)
	if claims == nil {
		return nil, domain.ErrUnauthenticated
	}
	var user domain.User
	err := GetDB(c).Where("id = ?", claims.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if user.Status == "disabled" {
		return nil, domain.ErrUnauthenticated
	}
	return &user, nil
}

func parsePagination(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("perPage"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]map[string]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			})
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", details)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
}
