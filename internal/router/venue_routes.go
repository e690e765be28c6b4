package router

import (
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/stadium-hospitality/internal/handler" // venue handlers
)

// RegisterVenue registers room and event dashboards.  Occupants are open to
// every role; counters and exports are restricted to administrators.
func RegisterVenue(e *echo.Echo, v *handler.VenueHandler, auth Auth) {
	staff := group(e, auth, allRoles...)
	staff.GET("/rooms/:id/occupants", v.RoomOccupants)

	admins := group(e, auth, adminRoles...)
	admins.GET("/rooms/:id/stats", v.RoomStats)   // room counters
	admins.GET("/rooms/:id/export", v.RoomExport) // XLSX download of the room's guests
	admins.GET("/events/:id/stats", v.EventStats) // event counters
}
