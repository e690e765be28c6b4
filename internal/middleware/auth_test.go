package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
	"github.com/iliyamo/stadium-hospitality/internal/utils"
)

const testSecret = "test-secret"

type fakeUsers map[uint64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type fakeRooms struct {
	ids []uint64
	err error
}

func (f fakeRooms) AssignedRoomIDs(context.Context, uint64) ([]uint64, error) {
	return f.ids, f.err
}

type failingUsers struct{}

func (failingUsers) GetByID(context.Context, uint64) (*model.User, error) {
	return nil, repository.ErrUnavailable
}

func bearer(t *testing.T, userID uint64, role string, stadiumID uint64) string {
	tok, err := utils.NewAccessToken(testSecret, userID, role, stadiumID, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// serve runs one GET /whoami through mws and returns the recorder and the
// actor the final handler observed.
func serve(t *testing.T, auth string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, *model.Actor) {
	t.Helper()
	e := echo.New()
	var seen *model.Actor
	e.GET("/whoami", func(c echo.Context) error {
		if a, ok := ActorFrom(c); ok {
			seen = &a
		}
		return c.NoContent(http.StatusNoContent)
	}, mws...)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestJWTAuth(t *testing.T) {
	expired, err := utils.NewAccessToken(testSecret, 1, "hostess", 1, -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.NewAccessToken("other", 1, "hostess", 1, time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name string
		auth string
		want int
	}{
		{"valid", bearer(t, 42, "hostess", 1), http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign.Token, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serve(t, tc.auth, JWTAuth(testSecret))
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	rec, _ := serve(t, bearer(t, 42, "hostess", 1), JWTAuth(testSecret), RequireRole(model.RoleSuperAdmin, model.RoleStadiumAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"forbidden"`)

	rec, _ = serve(t, bearer(t, 2, "stadium_admin", 1), JWTAuth(testSecret), RequireRole(model.RoleSuperAdmin, model.RoleStadiumAdmin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoadActor_Hostess(t *testing.T) {
	users := fakeUsers{42: {ID: 42, StadiumID: 1, Role: model.RoleHostess, IsActive: true}}
	rec, actor := serve(t, bearer(t, 42, "hostess", 1),
		JWTAuth(testSecret), LoadActor(users, fakeRooms{ids: []uint64{5, 6}}, zap.NewNop()))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, model.Actor{UserID: 42, StadiumID: 1, Role: model.RoleHostess, RoomIDs: []uint64{5, 6}}, *actor)
}

func TestLoadActor_StadiumComesFromUserRow(t *testing.T) {
	users := fakeUsers{2: {ID: 2, StadiumID: 4, Role: model.RoleStadiumAdmin, IsActive: true}}
	rec, actor := serve(t, bearer(t, 2, "stadium_admin", 9),
		JWTAuth(testSecret), LoadActor(users, fakeRooms{}, zap.NewNop()))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(4), actor.StadiumID)
	assert.Nil(t, actor.RoomIDs)
}

func TestLoadActor_Rejections(t *testing.T) {
	users := fakeUsers{
		3: {ID: 3, StadiumID: 1, Role: model.RoleHostess, IsActive: false},
		4: {ID: 4, StadiumID: 1, Role: model.RoleStadiumAdmin, IsActive: true},
		5: {ID: 5, StadiumID: 0, Role: model.RoleHostess, IsActive: true},
		6: {ID: 6, StadiumID: 1, Role: model.RoleHostess, IsActive: true},
	}
	cases := []struct {
		name  string
		auth  string
		users UserLoader
		rooms RoomLoader
		want  int
	}{
		{"unknown user", bearer(t, 99, "hostess", 1), users, fakeRooms{}, http.StatusUnauthorized},
		{"inactive user", bearer(t, 3, "hostess", 1), users, fakeRooms{}, http.StatusUnauthorized},
		{"stale role", bearer(t, 4, "super_admin", 0), users, fakeRooms{}, http.StatusUnauthorized},
		{"no stadium", bearer(t, 5, "hostess", 0), users, fakeRooms{}, http.StatusForbidden},
		{"user store down", bearer(t, 4, "stadium_admin", 1), failingUsers{}, fakeRooms{}, http.StatusServiceUnavailable},
		{"assignments down", bearer(t, 6, "hostess", 1), users, fakeRooms{err: errors.New("boom")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, actor := serve(t, tc.auth, JWTAuth(testSecret), LoadActor(tc.users, tc.rooms, zap.NewNop()))
			assert.Equal(t, tc.want, rec.Code)
			assert.Nil(t, actor)
		})
	}
}

func TestLoadActor_SuperAdminWithoutStadium(t *testing.T) {
	users := fakeUsers{1: {ID: 1, Role: model.RoleSuperAdmin, IsActive: true}}
	rec, actor := serve(t, bearer(t, 1, "super_admin", 0), JWTAuth(testSecret), LoadActor(users, fakeRooms{}, zap.NewNop()))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, actor.IsSuperAdmin())
	assert.Zero(t, actor.StadiumID)
}
