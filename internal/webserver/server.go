// Package webserver hosts the REST API. It owns the echo instance, the
// shared middleware chain and the route groups the api packages
// register their handlers on.
package webserver

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo-contrib/pprof"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/app"
	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/storage"
)

// AppContextKey stores the application on the request context.
const AppContextKey = "zestcart_app"

var server *WebServer

type WebServer struct {
	root   *echo.Echo
	app    app.AppContext
	public *echo.Group
	api    *echo.Group
	admin  *echo.Group
}

// Init builds the global web server around the application.
func Init(application app.AppContext) *WebServer {
	server = NewWebServer(application)
	return server
}

func NewWebServer(application app.AppContext) *WebServer {
	s := &WebServer{root: echo.New(), app: application}
	s.root.HideBanner = true
	s.root.HidePort = true
	s.root.JSONSerializer = &JsoniterSerializer{}
	s.root.Validator = NewWebValidator()
	s.root.HTTPErrorHandler = s.restErrorHandler

	s.root.Pre(middleware.RemoveTrailingSlash())
	s.root.Use(middleware.Recover())
	s.root.Use(middleware.CORS())
	s.root.Use(middleware.BodyLimit("16M"))
	s.root.Use(requestLogger())
	s.root.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, application)
			return next(c)
		}
	})

	if application.Config().System.Debug {
		pprof.Register(s.root)
	}

	// Local asset store doubles as a static file root.
	if local, ok := application.Assets().(*storage.LocalStore); ok {
		s.root.Static("/uploads", local.Dir())
	}

	jwtMiddleware := echojwt.WithConfig(jwtConfig(application))
	s.public = s.root.Group("/api/v1")
	s.api = s.root.Group("/api/v1", jwtMiddleware)
	s.admin = s.root.Group("/api/v1/admin", jwtMiddleware, adminOnly)
	return s
}

// Listen serves the REST API until shutdown.
func Listen() error {
	cfg := server.app.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("starting web server on %s", addr)
	return server.root.Start(addr)
}

// Shutdown stops the web server gracefully.
func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.root.Shutdown(ctx)
}

// Instance returns the echo engine, used by handler tests.
func (s *WebServer) Instance() *echo.Echo {
	return s.root
}

// Public route registrations, no authentication.
func PubGET(path string, h echo.HandlerFunc)  { server.public.GET(path, h) }
func PubPOST(path string, h echo.HandlerFunc) { server.public.POST(path, h) }

// Authenticated route registrations.
func ApiGET(path string, h echo.HandlerFunc)    { server.api.GET(path, h) }
func ApiPOST(path string, h echo.HandlerFunc)   { server.api.POST(path, h) }
func ApiPUT(path string, h echo.HandlerFunc)    { server.api.PUT(path, h) }
func ApiPATCH(path string, h echo.HandlerFunc)  { server.api.PATCH(path, h) }
func ApiDELETE(path string, h echo.HandlerFunc) { server.api.DELETE(path, h) }

// Admin route registrations, authenticated plus admin role.
func AdminGET(path string, h echo.HandlerFunc)    { server.admin.GET(path, h) }
func AdminPOST(path string, h echo.HandlerFunc)   { server.admin.POST(path, h) }
func AdminPUT(path string, h echo.HandlerFunc)    { server.admin.PUT(path, h) }
func AdminPATCH(path string, h echo.HandlerFunc)  { server.admin.PATCH(path, h) }
func AdminDELETE(path string, h echo.HandlerFunc) { server.admin.DELETE(path, h) }

// GetAppContext returns the application bound to the request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(AppContextKey).(app.AppContext)
}

// GetDB returns the request scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// GetCurrentClaims returns the verified token claims, nil on public routes.
func GetCurrentClaims(c echo.Context) *auth.Claims {
	claims, ok := c.Get("user").(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP))
			return nil
		},
	})
}

func (s *WebServer) restErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		code := "INTERNAL_ERROR"
		switch he.Code {
		case 400:
			code = "BAD_REQUEST"
		case 401:
			code = "UNAUTHENTICATED"
		case 404:
			code = "NOT_FOUND"
		case 405:
			code = "METHOD_NOT_ALLOWED"
		case 413:
			code = "PAYLOAD_TOO_LARGE"
		}
		_ = Fail(c, he.Code, code, fmt.Sprintf("%v", he.Message))
		return
	}
	zap.L().Error("unhandled request error",
		zap.String("uri", c.Request().RequestURI), zap.Error(err))
	_ = FailError(c, err)
}

var startupTime = time.Now()

// Uptime reports how long the server has been running.
func Uptime() time.Duration {
	return time.Since(startupTime)
}
