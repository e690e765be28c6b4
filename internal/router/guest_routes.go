package router

import (
	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/stadium-hospitality/internal/handler" // guest handlers
)

// RegisterGuests registers the hostess-facing guest endpoints under /v1.
// Every authenticated role may call them; hostesses are further scoped to
// their assigned rooms by the service layer.
func RegisterGuests(e *echo.Echo, a *handler.AccessHandler, s *handler.SearchHandler, auth Auth) {
	g := group(e, auth, allRoles...)

	// Static paths are matched before /guests/:id/...
	g.GET("/guests/search", s.List)
	g.GET("/guests/suggest", s.Suggest)
	g.GET("/guests/status", a.BulkStatus)

	g.POST("/guests/:id/checkin", a.Checkin)   // append a check-in to the ledger
	g.POST("/guests/:id/checkout", a.Checkout) // append a check-out to the ledger
	g.GET("/guests/:id/status", a.Status)      // current presence
	g.GET("/guests/:id/history", a.History)    // newest-first ledger rows
}
