package handler

import (
    "net/http" // HTTP status codes
    "strings"  // query parameter trimming

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/stadium-hospitality/internal/repository" // search filter types
    "github.com/iliyamo/stadium-hospitality/internal/service"    // search core
)

// SearchHandler serves the guest list and autocomplete.
type SearchHandler struct {
    Search *service.SearchService
}

// NewSearchHandler panics on a nil service.
func NewSearchHandler(search *service.SearchService) *SearchHandler {
    if search == nil {
        panic("nil search service passed to NewSearchHandler")
    }
    return &SearchHandler{Search: search}
}

// searchFilters reads the query string of GET /v1/guests/search.
func searchFilters(c echo.Context) (repository.SearchFilters, error) {
    f := repository.SearchFilters{
        Query:        strings.TrimSpace(c.QueryParam("q")),
        AccessStatus: lowerParam(c, "access_status"),
        VipLevel:     lowerParam(c, "vip_level"),
    }
    var err error
    if f.RoomIDs, err = parseIDList(c.QueryParam("room_ids")); err != nil {
        return f, err
    }
    if f.EventID, err = queryUint(c, "event_id"); err != nil {
        return f, err
    }
    if f.StadiumID, err = queryUint(c, "stadium_id"); err != nil {
        return f, err
    }
    if f.Limit, err = queryInt(c, "limit"); err != nil {
        return f, err
    }
    if f.Offset, err = queryInt(c, "offset"); err != nil {
        return f, err
    }
    return f, nil
}

// List handles GET /v1/guests/search.
//
// Query parameters: q (name/company), room_ids (comma separated), event_id,
// access_status (checked_in|not_checked_in), vip_level, limit (default 100,
// capped at 500), offset, stadium_id (super admins only).
func (h *SearchHandler) List(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    f, err := searchFilters(c)
    if err != nil {
        return writeError(c, err)
    }
    res, err := h.Search.Search(c.Request().Context(), a, f)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res) // {items, total, page, page_size}
}

// Suggest handles GET /v1/guests/suggest?q=&room_ids=&limit=.
func (h *SearchHandler) Suggest(c echo.Context) error {
    a, err := actor(c)
    if err != nil {
        return writeError(c, err)
    }
    req := service.SuggestRequest{Prefix: strings.TrimSpace(c.QueryParam("q"))}
    if req.RoomIDs, err = parseIDList(c.QueryParam("room_ids")); err != nil {
        return writeError(c, err)
    }
    if req.StadiumID, err = queryUint(c, "stadium_id"); err != nil {
        return writeError(c, err)
    }
    if req.Limit, err = queryInt(c, "limit"); err != nil {
        return writeError(c, err)
    }
    out, err := h.Search.QuickSuggest(c.Request().Context(), a, req)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"suggestions": out})
}
