package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sleeping-barber/internal/config"
	"github.com/iliyamo/sleeping-barber/internal/handler"
	"github.com/iliyamo/sleeping-barber/internal/middleware"
	"github.com/iliyamo/sleeping-barber/internal/stream"
	"github.com/iliyamo/sleeping-barber/internal/utils"
	"github.com/redis/go-redis/v9"
)

// Deps bundles everything the routes need.  Redis may be nil, in which
// case rate limiting is disabled.
type Deps struct {
	Shop      *handler.ShopHandler
	Auth      *handler.AuthHandler
	Hub       *stream.Hub
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	JWTSecret string
}

// RegisterRoutes registers every route on e.
//
//	GET  /healthz            liveness, barber loop status
//	POST /v1/arrivals        a client walks in (rate limited)
//	GET  /v1/shop            shop snapshot
//	GET  /v1/shop/stream     websocket feed of shop events
//	POST /v1/auth/login      owner login
//	GET  /v1/me              token introspection (owner)
//	POST /v1/barber/start    open the shop (owner)
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Shop.Health)

	e.POST("/v1/arrivals", d.Shop.Arrive, middleware.NewArrivalLimiter(d.RateLimit, d.Redis).Middleware())
	e.GET("/v1/shop", d.Shop.Snapshot)
	if d.Hub != nil {
		e.GET("/v1/shop/stream", d.Hub.Serve)
	}

	e.POST("/v1/auth/login", d.Auth.Login)

	// Owner middleware is attached per route: Group.Use would also guard
	// unknown /v1 paths and turn their 404 into 401.
	owner := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(utils.RoleOwner)}
	e.GET("/v1/me", d.Auth.Me, owner...)
	e.POST("/v1/barber/start", d.Shop.StartBarber, owner...)
}
