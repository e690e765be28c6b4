package handler

import (
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/stadium-hospitality/internal/model"   // Presence DTO
    "github.com/iliyamo/stadium-hospitality/internal/service" // access core
)

// AccessHandler serves check-in, check-out and presence lookups of single
// guests.
type AccessHandler struct {
    Access *service.AccessService
}

// NewAccessHandler panics on a nil service.
func NewAccessHandler(access *service.AccessService) *AccessHandler {
    if access == nil {
        panic("nil access service passed to NewAccessHandler")
    }
    return &AccessHandler{Access: access}
}

// accessBody reads the optional JSON body of a check-in or check-out and
// fills in the guest id from the path.
func accessBody(c echo.Context) (service.AccessRequest, error) {
    var req service.AccessRequest
    if c.Request().ContentLength != 0 { // body is optional: device, companions and notes
        if err := c.Bind(&req); err != nil {
            return req, badRequest("malformed body")
        }
    }
    id, err := pathID(c, "id")
    if err != nil {
        return req, err
    }
    req.GuestID = id
    return req, nil
}

// Checkin handles POST /v1/guests/:id/checkin.
func (h *AccessHandler) Checkin(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    req, err := accessBody(c)
    if err != nil {
        return writeError(c, err)
    }
    // The service validates the transition and writes the ledger row.
    res, err := h.Access.Checkin(c.Request().Context(), a, req)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Checkout handles POST /v1/guests/:id/checkout.
func (h *AccessHandler) Checkout(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    req, err := accessBody(c)
    if err != nil {
        return writeError(c, err)
    }
    // Checkout needs a current check-in; the service returns a conflict otherwise.
    res, err := h.Access.Checkout(c.Request().Context(), a, req)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Status handles GET /v1/guests/:id/status.
func (h *AccessHandler) Status(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    p, err := h.Access.CurrentStatus(c.Request().Context(), a, id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// History handles GET /v1/guests/:id/history?limit=.
func (h *AccessHandler) History(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    limit, err := queryInt(c, "limit") // 0 means the service default
    if err != nil {
        return writeError(c, err)
    }
    events, err := h.Access.History(c.Request().Context(), a, id, limit)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, events)
}

// BulkStatus handles GET /v1/guests/status?ids=1,2,3&stadium_id=.  The
// response lists one presence per distinct id in request order.
func (h *AccessHandler) BulkStatus(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    ids, err := parseIDList(c.QueryParam("ids"))
    if err != nil {
        return writeError(c, err)
    }
    if len(ids) == 0 {
        return writeError(c, badRequest("ids is required"))
    }
    stadiumID, err := queryUint(c, "stadium_id") // only honoured for super admins
    if err != nil {
        return writeError(c, err)
    }
    byID, err := h.Access.BulkStatus(c.Request().Context(), a, stadiumID, ids)
    if err != nil {
        return writeError(c, err)
    }
    // Keep the caller's order and drop duplicate ids.
    out := make([]model.Presence, 0, len(byID))
    seen := make(map[uint64]bool, len(ids))
    for _, id := range ids {
        if seen[id] {
            continue
        }
        seen[id] = true
        out = append(out, byID[id])
    }
    return c.JSON(http.StatusOK, echo.Map{"statuses": out})
}
