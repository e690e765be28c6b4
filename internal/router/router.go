package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"go.uber.org/zap"             // logger handed to the actor loader

	"github.com/iliyamo/stadium-hospitality/internal/handler"    // health handler
	"github.com/iliyamo/stadium-hospitality/internal/middleware" // JWT, roles and actor loading
	"github.com/iliyamo/stadium-hospitality/internal/model"      // role constants
)

// Auth carries what the protected groups need to turn a bearer token into
// a model.Actor.
type Auth struct {
	Secret  string
	Users   middleware.UserLoader
	Rooms   middleware.RoomLoader
	Limiter echo.MiddlewareFunc // optional; nil disables rate limiting
	Log     *zap.Logger
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// group builds a /v1 group.  The chain is: verify the token, rate-limit per
// user, enforce roles, then load the actor.  Rejected tokens never reach
// Redis or MySQL.
func group(e *echo.Echo, auth Auth, roles ...model.Role) *echo.Group {
	mws := []echo.MiddlewareFunc{middleware.JWTAuth(auth.Secret)}
	if auth.Limiter != nil {
		mws = append(mws, auth.Limiter)
	}
	mws = append(mws,
		middleware.RequireRole(roles...),
		middleware.LoadActor(auth.Users, auth.Rooms, auth.Log),
	)
	return e.Group("/v1", mws...)
}

var (
	allRoles   = []model.Role{model.RoleSuperAdmin, model.RoleStadiumAdmin, model.RoleHostess}
	adminRoles = []model.Role{model.RoleSuperAdmin, model.RoleStadiumAdmin}
)
