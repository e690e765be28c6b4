package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/stadium-hospitality/internal/model"
)

var searchCols = []string{
	"id", "stadium_id", "event_id", "event_name", "room_id", "room_name",
	"first_name", "last_name", "company_name", "table_number", "seat_number", "vip_level",
	"access_type", "access_time",
}

func setupSearchRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SearchRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewSearchRepo(db, 2)
}

func searchRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows(searchCols)
	for i := 1; i <= n; i++ {
		rows.AddRow(i, 1, 3, "Derby", 5, "Sky Lounge", "First", "Last", "", "", "", "standard", nil, nil)
	}
	return rows
}

func TestSearchConditions(t *testing.T) {
	cond, args := searchConditions(SearchFilters{
		StadiumID:    1,
		RoomIDs:      []uint64{5, 6, 5},
		EventID:      3,
		VipLevel:     "vip",
		Query:        "ro a 50%_off",
		AccessStatus: AccessFilterCheckedIn,
	})
	assert.Equal(t, "g.is_active = 1 AND g.stadium_id = ? AND g.room_id IN (?,?) AND g.event_id = ? AND g.vip_level = ?"+
		" AND (g.last_name LIKE ? OR g.first_name LIKE ? OR g.company_name LIKE ?)"+
		" AND (g.last_name LIKE ? OR g.first_name LIKE ? OR g.company_name LIKE ?)"+
		" AND la.access_type = 'entry'", cond)
	assert.Equal(t, []any{
		uint64(1), uint64(5), uint64(6), uint64(3), "vip",
		"ro%", "ro%", "%ro%",
		`50\%\_off%`, `50\%\_off%`, `%50\%\_off%`,
	}, args)
}

func TestSearchConditions_NotCheckedIn(t *testing.T) {
	cond, args := searchConditions(SearchFilters{AccessStatus: AccessFilterNotCheckedIn})
	assert.Equal(t, "g.is_active = 1 AND (la.id IS NULL OR la.access_type = 'exit')", cond)
	assert.Empty(t, args)
}

func TestSearchTokens(t *testing.T) {
	assert.Equal(t, []string{"de", "Rossi"}, SearchTokens("  de  x Rossi "))
	assert.Equal(t, []string{"Ñu"}, SearchTokens("Ñu"))
	assert.Nil(t, SearchTokens("a b c"))
}

func TestSearch_StatusJoined(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	at := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(`ORDER BY g.last_name ASC, g.first_name ASC, g.id ASC`).
		WithArgs(1, DefaultSearchLimit, 0).
		WillReturnRows(sqlmock.NewRows(searchCols).
			AddRow(1, 1, 3, "Derby", 5, "Sky Lounge", "Ada", "Byron", "", "T1", "S1", "vip", "entry", at).
			AddRow(2, 1, 3, "Derby", 5, "Sky Lounge", "Alan", "Turing", "", "T2", "S2", "standard", "exit", at).
			AddRow(3, 1, 3, "Derby", 5, "Sky Lounge", "Grace", "Hopper", "", "T3", "S3", "premium", nil, nil))

	res, err := repo.Search(context.Background(), SearchFilters{StadiumID: 1})
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.Equal(t, int64(3), res.TotalFound)
	assert.False(t, res.HasMore)
	assert.Equal(t, DefaultSearchLimit, res.Limit)
	assert.Equal(t, model.StatusCheckedIn, res.Results[0].Status)
	assert.Equal(t, model.StatusCheckedOut, res.Results[1].Status)
	assert.Equal(t, model.StatusNeverAccessed, res.Results[2].Status)
	assert.Nil(t, res.Results[2].LastAccessTime)
	require.NotNil(t, res.Results[0].LastAccessTime)
	assert.Equal(t, at, *res.Results[0].LastAccessTime)
	assert.GreaterOrEqual(t, res.ExecutionTimeMs, 0.0)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_LimitBoundary(t *testing.T) {
	for _, total := range []int{501, 500} {
		db, mock, repo := setupSearchRepo(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(total))
		mock.ExpectQuery(`LIMIT \? OFFSET \?`).
			WithArgs(1, MaxSearchLimit, 0).
			WillReturnRows(searchRows(MaxSearchLimit))

		res, err := repo.Search(context.Background(), SearchFilters{StadiumID: 1, Limit: MaxSearchLimit})
		require.NoError(t, err)
		assert.Len(t, res.Results, MaxSearchLimit)
		assert.True(t, res.HasMore, "total=%d", total)
		assert.Equal(t, int64(total), res.TotalFound)
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func TestSearch_LimitClamped(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \? OFFSET \?`).WithArgs(MaxSearchLimit, 20).WillReturnRows(searchRows(0))

	res, err := repo.Search(context.Background(), SearchFilters{Limit: 5000, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, res.Limit)
	assert.NotNil(t, res.Results)
	assert.False(t, res.HasMore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_AccessStatusFilterInQuery(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE g.is_active = 1 AND g.stadium_id = \? AND la.access_type = 'entry'`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(`la.access_type = 'entry'\s+ORDER BY`).
		WithArgs(1, 10, 0).
		WillReturnRows(sqlmock.NewRows(searchCols).
			AddRow(9, 1, 3, "Derby", 5, "Sky Lounge", "Ada", "Byron", "", "", "", "vip", "entry", time.Now()))

	res, err := repo.Search(context.Background(), SearchFilters{StadiumID: 1, AccessStatus: AccessFilterCheckedIn, Limit: 10})
	require.NoError(t, err)
	for _, g := range res.Results {
		assert.Equal(t, model.StatusCheckedIn, g.Status)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuickSuggest(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	mock.ExpectQuery(`g.room_id IN \(\?,\?\)`).
		WithArgs(1, "Lo%", "Lo%", 4, 5, DefaultSuggestLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "table_number", "name"}).
			AddRow(7, "Ada", "Lovelace", "T4", "Sky Lounge"))

	out, err := repo.QuickSuggest(context.Background(), SuggestQuery{Prefix: " Lo ", StadiumID: 1, RoomIDs: []uint64{4, 5}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Lovelace Ada", out[0].DisplayName)
	assert.Equal(t, "T4", out[0].Table)
	assert.Equal(t, "Sky Lounge", out[0].Room)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuickSuggest_ShortPrefixSkipsQuery(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	out, err := repo.QuickSuggest(context.Background(), SuggestQuery{Prefix: "L", StadiumID: 1})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuickSuggest_PrefixOnly(t *testing.T) {
	db, mock, repo := setupSearchRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT g.id`).
		WithArgs(1, "an%", "an%", MaxSuggestLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "table_number", "name"}))

	_, err := repo.QuickSuggest(context.Background(), SuggestQuery{Prefix: "an", StadiumID: 1, Limit: 999})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.False(t, strings.Contains(escapeLike("plain"), `\`))
}
