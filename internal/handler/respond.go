package handler // handler exposes the access core as JSON endpoints

import (
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stadium-hospitality/internal/middleware"
    "github.com/iliyamo/stadium-hospitality/internal/model"
    "github.com/iliyamo/stadium-hospitality/internal/repository"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
    Error   string `json:"error"`
    Message string `json:"message"`
}

// statusFor maps an error kind to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
    switch repository.Kind(err) {
    case repository.ErrNotFound:
        return http.StatusNotFound, "not_found"
    case repository.ErrInvalidTransition:
        return http.StatusConflict, "invalid_transition"
    case repository.ErrValidation:
        return http.StatusBadRequest, "validation_error"
    case repository.ErrConflict:
        return http.StatusConflict, "conflict"
    case repository.ErrUnavailable:
        return http.StatusServiceUnavailable, "unavailable"
    }
    return http.StatusInternalServerError, "internal_error"
}

// writeError renders err.  Unclassified errors are reported without their
// text; the service layer has already logged them.
func writeError(c echo.Context, err error) error {
    status, code := statusFor(err)
    msg := err.Error()
    if status == http.StatusInternalServerError {
        msg = "internal error"
    }
    return c.JSON(status, errorBody{Error: code, Message: msg})
}

func badRequest(format string, args ...any) error {
    return fmt.Errorf("%w: "+format, append([]any{repository.ErrValidation}, args...)...)
}

// actor returns the identity loaded by middleware.LoadActor.
func actor(c echo.Context) (model.Actor, error) {
    a, ok := middleware.ActorFrom(c)
    if !ok {
        return model.Actor{}, errors.New("no actor in request context")
    }
    return a, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, badRequest("invalid %s %q", name, c.Param(name))
    }
    return id, nil
}

// queryUint parses an optional unsigned query parameter; absent means zero.
func queryUint(c echo.Context, name string) (uint64, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return 0, nil
    }
    n, err := strconv.ParseUint(raw, 10, 64)
    if err != nil {
        return 0, badRequest("invalid %s %q", name, raw)
    }
    return n, nil
}

// queryInt parses an optional integer query parameter; absent means zero.
// Range checks are left to the service layer.
func queryInt(c echo.Context, name string) (int, error) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return 0, nil
    }
    n, err := strconv.Atoi(raw)
    if err != nil {
        return 0, badRequest("invalid %s %q", name, raw)
    }
    return n, nil
}

// parseIDList parses a comma separated list such as "1,2,3".  Blank items
// are skipped.
func parseIDList(raw string) ([]uint64, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil, nil
    }
    parts := strings.Split(raw, ",")
    out := make([]uint64, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" {
            continue
        }
        id, err := strconv.ParseUint(p, 10, 64)
        if err != nil || id == 0 {
            return nil, badRequest("invalid id %q", p)
        }
        out = append(out, id)
    }
    return out, nil
}

// lowerParam returns a trimmed, lower-cased query parameter.
func lowerParam(c echo.Context, name string) string {
    return strings.ToLower(strings.TrimSpace(c.QueryParam(name)))
}
