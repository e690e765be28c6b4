package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stadium-hospitality/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ctxUserID    = "user_id"
    ctxRole      = "role"
    ctxStadiumID = "stadium_id"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject, role and stadium claims into the request
// context.  Handlers and downstream middleware read them with c.Get.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
            }
            uid, err := claims.UserID()
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid claims"})
            }
            c.Set(ctxUserID, uid)
            c.Set(ctxRole, claims.Role)
            c.Set(ctxStadiumID, claims.StadiumID)
            return next(c)
        }
    }
}
