package handler

import (
    "bytes"    // workbook buffer for the export
    "net/http" // HTTP status codes
    "time"     // export timestamp

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/stadium-hospitality/internal/report"  // XLSX rendering
    "github.com/iliyamo/stadium-hospitality/internal/service" // access, search and stats cores
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// VenueHandler serves the room and event dashboards.
type VenueHandler struct {
    Access *service.AccessService
    Search *service.SearchService
    Stats  *service.StatsService
    Log    *zap.Logger
    Now    func() time.Time
}

// NewVenueHandler panics if any service is nil.
func NewVenueHandler(access *service.AccessService, search *service.SearchService, stats *service.StatsService, log *zap.Logger) *VenueHandler {
    if access == nil || search == nil || stats == nil {
        panic("nil service passed to NewVenueHandler")
    }
    return &VenueHandler{Access: access, Search: search, Stats: stats, Log: log, Now: time.Now}
}

// RoomStats handles GET /v1/rooms/:id/stats?event_id=.
func (h *VenueHandler) RoomStats(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    roomID, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    eventID, err := queryUint(c, "event_id")
    if err != nil {
        return writeError(c, err)
    }
    st, err := h.Stats.RoomStats(c.Request().Context(), a, roomID, eventID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}

// RoomOccupants handles GET /v1/rooms/:id/occupants.
func (h *VenueHandler) RoomOccupants(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    roomID, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    out, err := h.Access.RoomOccupants(c.Request().Context(), a, roomID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"room_id": roomID, "count": len(out), "occupants": out})
}

// RoomExport handles GET /v1/rooms/:id/export.  The workbook is rendered
// into memory first so that a failure still produces a JSON error.
func (h *VenueHandler) RoomExport(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    roomID, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    room, guests, err := h.Search.RoomGuests(c.Request().Context(), a, roomID)
    if err != nil {
        return writeError(c, err)
    }
    now := h.Now()
    var buf bytes.Buffer
    if err := report.WriteRoomPresence(&buf, room, guests, now); err != nil {
        h.Log.Error("room export failed", zap.Uint64("room_id", roomID), zap.Int("rows", len(guests)), zap.Error(err))
        return writeError(c, err)
    }
    // Browsers save the workbook under the room name and export time.
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+report.RoomPresenceFilename(room, now)+`"`)
    return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

// EventStats handles GET /v1/events/:id/stats.
func (h *VenueHandler) EventStats(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    eventID, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    st, err := h.Stats.EventStats(c.Request().Context(), a, eventID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}
