package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/model"
)

const (
	DefaultSearchLimit  = 100
	MaxSearchLimit      = 500
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 50
	minTokenLength      = 2
)

// Access status filter values.
const (
	AccessFilterCheckedIn    = "checked_in"
	AccessFilterNotCheckedIn = "not_checked_in"
)

// SearchFilters defines filters & pagination for guest searches.
// StadiumID zero means every tenant; callers enforce it for non super admins.
type SearchFilters struct {
	StadiumID    uint64   `json:"stadium_id"`
	RoomIDs      []uint64 `json:"room_ids"`
	EventID      uint64   `json:"event_id"`
	Query        string   `json:"q" validate:"max=100"`
	AccessStatus string   `json:"access_status" validate:"omitempty,oneof=checked_in not_checked_in"`
	VipLevel     string   `json:"vip_level" validate:"omitempty,oneof=standard premium vip ultra_vip"`
	Limit        int      `json:"limit" validate:"gte=0"`
	Offset       int      `json:"offset" validate:"gte=0"`
}

// normalize applies the default limit and the hard cap.
func (f *SearchFilters) normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// GuestWithStatus is a search row: the guest joined with its latest access.
type GuestWithStatus struct {
	ID             uint64               `json:"id"`
	StadiumID      uint64               `json:"stadium_id"`
	EventID        uint64               `json:"event_id"`
	EventName      string               `json:"event_name"`
	RoomID         uint64               `json:"room_id"`
	RoomName       string               `json:"room_name"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	CompanyName    string               `json:"company_name"`
	TableNumber    string               `json:"table_number"`
	SeatNumber     string               `json:"seat_number"`
	VipLevel       model.VipLevel       `json:"vip_level"`
	Status         model.PresenceStatus `json:"access_status"`
	LastAccessType *model.AccessType    `json:"last_access_type,omitempty"`
	LastAccessTime *time.Time           `json:"last_access_time,omitempty"`
}

// SearchResult is one page of guests.
//
// HasMore is true iff the page is full (len(Results) == Limit).  It is an
// approximation: a page that exactly exhausts the matches still reports
// true.  TotalFound is exact and can be used to disambiguate.
type SearchResult struct {
	Results         []GuestWithStatus `json:"results"`
	TotalFound      int64             `json:"total_found"`
	ExecutionTimeMs float64           `json:"execution_time_ms"`
	HasMore         bool              `json:"has_more"`
	Limit           int               `json:"limit"`
	Offset          int               `json:"offset"`
}

// SearchRepo answers filtered guest searches.
type SearchRepo struct {
	db      *sql.DB
	retries int
}

// NewSearchRepo returns a SearchRepo bound to db.
func NewSearchRepo(db *sql.DB, retries int) *SearchRepo {
	return &SearchRepo{db: db, retries: retries}
}

// latestAccessJoin attaches each guest's highest-id ledger row as "la".
const latestAccessJoin = `LEFT JOIN guest_accesses la
              ON la.id = (SELECT MAX(x.id) FROM guest_accesses x WHERE x.guest_id = g.id)`

// Search runs the filtered query.  Results are ordered by last name, first
// name and id so pages are stable.
func (r *SearchRepo) Search(ctx context.Context, f SearchFilters) (*SearchResult, error) {
	started := time.Now()
	f.normalize()
	cond, args := searchConditions(f)

	countSQL := `SELECT COUNT(*)
          FROM guests g
          ` + latestAccessJoin + `
          WHERE ` + cond

	dataSQL := `SELECT
              g.id, g.stadium_id, g.event_id, e.name, g.room_id, rm.name,
              g.first_name, g.last_name, g.company_name, g.table_number, g.seat_number, g.vip_level,
              la.access_type, la.access_time
          FROM guests g
          JOIN rooms rm  ON rm.id = g.room_id
          JOIN events e  ON e.id = g.event_id
          ` + latestAccessJoin + `
          WHERE ` + cond + `
          ORDER BY g.last_name ASC, g.first_name ASC, g.id ASC
          LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), f.Limit, f.Offset)

	var total int64
	out := make([]GuestWithStatus, 0, f.Limit)
	err := database.Retry(ctx, r.retries, func() error {
		if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
			return err
		}
		out = out[:0]
		rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			g, err := scanGuestWithStatus(rows)
			if err != nil {
				return err
			}
			out = append(out, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "search")
	}
	return &SearchResult{
		Results:         out,
		TotalFound:      total,
		ExecutionTimeMs: float64(time.Since(started).Microseconds()) / 1000.0,
		HasMore:         len(out) == f.Limit,
		Limit:           f.Limit,
		Offset:          f.Offset,
	}, nil
}

func scanGuestWithStatus(rows *sql.Rows) (GuestWithStatus, error) {
	var g GuestWithStatus
	var vip string
	var accessType sql.NullString
	var accessTime sql.NullTime
	if err := rows.Scan(
		&g.ID, &g.StadiumID, &g.EventID, &g.EventName, &g.RoomID, &g.RoomName,
		&g.FirstName, &g.LastName, &g.CompanyName, &g.TableNumber, &g.SeatNumber, &vip,
		&accessType, &accessTime,
	); err != nil {
		return g, err
	}
	g.VipLevel = model.VipLevel(vip)
	g.Status = model.StatusNeverAccessed
	if accessType.Valid {
		t := model.AccessType(accessType.String)
		g.LastAccessType = &t
		g.Status = model.StatusFor(t)
	}
	if accessTime.Valid {
		ts := accessTime.Time.UTC()
		g.LastAccessTime = &ts
	}
	return g, nil
}

// searchConditions composes the WHERE clause shared by the count and data
// queries.  Free text is split on whitespace; tokens shorter than two
// characters are ignored; each remaining token must match a last-name
// prefix, a first-name prefix or a company substring.
func searchConditions(f SearchFilters) (string, []any) {
	where := []string{"g.is_active = 1"}
	args := []any{}

	if f.StadiumID > 0 {
		where = append(where, "g.stadium_id = ?")
		args = append(args, f.StadiumID)
	}
	if ids := dedupeIDs(f.RoomIDs); len(ids) > 0 {
		placeholders, roomArgs := inList(ids)
		where = append(where, "g.room_id IN ("+placeholders+")")
		args = append(args, roomArgs...)
	}
	if f.EventID > 0 {
		where = append(where, "g.event_id = ?")
		args = append(args, f.EventID)
	}
	if f.VipLevel != "" {
		where = append(where, "g.vip_level = ?")
		args = append(args, f.VipLevel)
	}
	for _, tok := range SearchTokens(f.Query) {
		esc := escapeLike(tok)
		where = append(where, "(g.last_name LIKE ? OR g.first_name LIKE ? OR g.company_name LIKE ?)")
		args = append(args, esc+"%", esc+"%", "%"+esc+"%")
	}
	switch f.AccessStatus {
	case AccessFilterCheckedIn:
		where = append(where, "la.access_type = 'entry'")
	case AccessFilterNotCheckedIn:
		where = append(where, "(la.id IS NULL OR la.access_type = 'exit')")
	}
	return strings.Join(where, " AND "), args
}

// SearchTokens splits a free-text query into the tokens used for matching.
func SearchTokens(q string) []string {
	var out []string
	for _, tok := range strings.Fields(q) {
		if utf8.RuneCountInString(tok) >= minTokenLength {
			out = append(out, tok)
		}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// SuggestQuery drives autocomplete: prefix-only matching on names.
type SuggestQuery struct {
	Prefix    string
	StadiumID uint64
	RoomIDs   []uint64
	Limit     int
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
	Table       string `json:"table"`
	Room        string `json:"room"`
}

// QuickSuggest returns guests whose last or first name starts with prefix.
// There is no substring fallback.  Prefixes shorter than two characters
// return an empty list without touching the database.
func (r *SearchRepo) QuickSuggest(ctx context.Context, sq SuggestQuery) ([]Suggestion, error) {
	prefix := strings.TrimSpace(sq.Prefix)
	if utf8.RuneCountInString(prefix) < minTokenLength {
		return []Suggestion{}, nil
	}
	limit := sq.Limit
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}
	esc := escapeLike(prefix) + "%"
	where := []string{"g.is_active = 1", "g.stadium_id = ?", "(g.last_name LIKE ? OR g.first_name LIKE ?)"}
	args := []any{sq.StadiumID, esc, esc}
	if ids := dedupeIDs(sq.RoomIDs); len(ids) > 0 {
		placeholders, roomArgs := inList(ids)
		where = append(where, "g.room_id IN ("+placeholders+")")
		args = append(args, roomArgs...)
	}
	q := `SELECT g.id, g.first_name, g.last_name, g.table_number, rm.name
          FROM guests g
          JOIN rooms rm ON rm.id = g.room_id
          WHERE ` + strings.Join(where, " AND ") + `
          ORDER BY g.last_name ASC, g.first_name ASC, g.id ASC
          LIMIT ?`
	args = append(args, limit)

	out := make([]Suggestion, 0, limit)
	err := database.Retry(ctx, r.retries, func() error {
		out = out[:0]
		rows, err := r.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s Suggestion
			var first, last string
			if err := rows.Scan(&s.ID, &first, &last, &s.Table, &s.Room); err != nil {
				return err
			}
			s.DisplayName = model.DisplayName(first, last)
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "suggest")
	}
	return out, nil
}
