package handler

import (
    "context"  // ping deadline
    "net/http" // HTTP status codes
    "time"     // ping timeout

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health returns a liveness/readiness endpoint for load balancers.  It
// answers 200 "ok" while the database answers a ping within one second and
// 503 otherwise.  A nil db only reports liveness.
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        if db == nil {
            return c.String(http.StatusOK, "ok")
        }
        ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
        return c.String(http.StatusOK, "ok")
    }
}
