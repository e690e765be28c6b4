package middleware

// identity.go turns the verified token claims into the request-scoped
// model.Actor the service layer consumes.  The user row is re-read on every
// request so that deactivated accounts and revoked room assignments take
// effect immediately.

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/stadium-hospitality/internal/model"
    "github.com/iliyamo/stadium-hospitality/internal/repository"
)

const ctxActor = "actor"

// UserLoader reads a user row.
type UserLoader interface {
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// RoomLoader lists the active room assignments of a hostess.
type RoomLoader interface {
    AssignedRoomIDs(ctx context.Context, userID uint64) ([]uint64, error)
}

// LoadActor builds the model.Actor for the authenticated user.  It must run
// after JWTAuth.  Unknown or inactive users and tokens whose role no longer
// matches the account are rejected with 401; a non super admin without a
// stadium is rejected with 403.
func LoadActor(users UserLoader, rooms RoomLoader, log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid, _ := c.Get(ctxUserID).(uint64)
            role, _ := c.Get(ctxRole).(string)
            if uid == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing identity"})
            }
            ctx := c.Request().Context()
            u, err := users.GetByID(ctx, uid)
            if err != nil {
                if errors.Is(err, repository.ErrNotFound) {
                    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "unknown user"})
                }
                log.Error("load user failed", zap.Uint64("user_id", uid), zap.Error(err))
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": "identity lookup failed"})
            }
            if !u.IsActive || string(u.Role) != role || !u.Role.Valid() {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "inactive user or stale token"})
            }
            actor := model.Actor{UserID: u.ID, StadiumID: u.StadiumID, Role: u.Role}
            if !actor.IsSuperAdmin() && actor.StadiumID == 0 {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "user has no stadium"})
            }
            if actor.IsHostess() {
                ids, err := rooms.AssignedRoomIDs(ctx, u.ID)
                if err != nil {
                    log.Error("load room assignments failed", zap.Uint64("user_id", uid), zap.Error(err))
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": "identity lookup failed"})
                }
                actor.RoomIDs = ids
            }
            SetActor(c, actor)
            return next(c)
        }
    }
}

// SetActor stores a for the rest of the request.
func SetActor(c echo.Context, a model.Actor) { c.Set(ctxActor, a) }

// ActorFrom returns the actor stored by LoadActor.
func ActorFrom(c echo.Context) (model.Actor, bool) {
    a, ok := c.Get(ctxActor).(model.Actor)
    return a, ok
}

// userKey extracts a user identifier for rate-limit keys.  It returns
// "anon" when no user is authenticated.
func userKey(c echo.Context) string {
    if id, ok := c.Get(ctxUserID).(uint64); ok && id > 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
