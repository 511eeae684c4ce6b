package webserver

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/app"
	"github.com/zestcart/zestcart/internal/domain"
)

// jwtConfig verifies bearer tokens through the token service so that
// revoked tokens are rejected, not just expired ones.
func jwtConfig(application app.AppContext) echojwt.Config {
	return echojwt.Config{
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return application.Tokens().Verify(c.Request().Context(), auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return Fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		},
	}
}

func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := GetCurrentClaims(c)
		if claims == nil || claims.Role != domain.RoleAdmin {
			return Fail(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
		}
		return next(c)
	}
}
