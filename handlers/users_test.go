package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

func newUserStore(t *testing.T, users ...models.User) *store.Store[models.UserDB] {
	t.Helper()
	s := store.New(filepath.Join(t.TempDir(), "users.json"), models.DefaultUserDB)
	require.NoError(t, s.Update(func(db *models.UserDB) error {
		for _, u := range users {
			db.Users[u.Username] = u
		}
		return nil
	}))
	return s
}

func account(t *testing.T, username, role string) models.User {
	t.Helper()
	u := models.User{Username: username, Role: role, CreatedAt: time.Now()}
	require.NoError(t, u.SetPassword("correct-horse"))
	return u
}

// userRouter mounts the admin user routes with the given caller injected, the
// way AuthMiddleware would.
func userRouter(h *UserAdminHandler, caller models.User) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), UserContextKey, &caller)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Delete("/users/{username}", h.DeleteUser)
	r.Post("/users/{username}/reset-password", h.ResetPassword)
	return r
}

func TestCreateUserWithUserRole(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	s := newUserStore(t, admin)
	router := userRouter(NewUserAdminHandler(s), admin)

	body := `{"username": "frame", "password": "longenough", "role": "user"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "frame", created.Username)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Empty(t, created.PasswordHash)

	db, err := s.Load()
	require.NoError(t, err)
	stored, ok := db.Users["frame"]
	require.True(t, ok)
	assert.False(t, stored.IsAdmin())
	assert.True(t, stored.CheckPassword("longenough"))
}

func TestCreateUserDefaultsToUserRole(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	s := newUserStore(t, admin)
	router := userRouter(NewUserAdminHandler(s), admin)

	body := `{"username": "viewer", "password": "longenough"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	db, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, db.Users["viewer"].Role)
}

func TestCreateUserRejectsDuplicateAndBadInput(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	s := newUserStore(t, admin)
	router := userRouter(NewUserAdminHandler(s), admin)

	cases := []struct {
		body string
		code int
	}{
		{`{"username": "admin", "password": "longenough"}`, http.StatusConflict},
		{`{"username": "", "password": "longenough"}`, http.StatusBadRequest},
		{`{"username": "x", "password": "short"}`, http.StatusBadRequest},
		{`{"username": "x", "password": "longenough", "role": "superuser"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tc.body)))
		assert.Equal(t, tc.code, rec.Code, "body %s", tc.body)
	}
}

func TestDeleteUser(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	viewer := account(t, "viewer", models.RoleUser)
	s := newUserStore(t, admin, viewer)
	router := userRouter(NewUserAdminHandler(s), admin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/viewer", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	db, err := s.Load()
	require.NoError(t, err)
	_, ok := db.Users["viewer"]
	assert.False(t, ok)
}

func TestDeleteUserGuards(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	s := newUserStore(t, admin)
	router := userRouter(NewUserAdminHandler(s), admin)

	// own account
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/admin", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown user
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLastAdminRejected(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	second := account(t, "second", models.RoleAdmin)
	s := newUserStore(t, admin, second)
	router := userRouter(NewUserAdminHandler(s), second)

	// deleting one of two admins is fine
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/admin", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// a different admin trying to delete the survivor is refused
	routerAsAdmin := userRouter(NewUserAdminHandler(s), admin)
	rec = httptest.NewRecorder()
	routerAsAdmin.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/second", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	db, err := s.Load()
	require.NoError(t, err)
	_, ok := db.Users["second"]
	assert.True(t, ok, "the last admin must survive")
}

func TestResetPassword(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	viewer := account(t, "viewer", models.RoleUser)
	s := newUserStore(t, admin, viewer)
	router := userRouter(NewUserAdminHandler(s), admin)

	body := `{"password": "brand-new-pass"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/viewer/reset-password", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	db, err := s.Load()
	require.NoError(t, err)
	viewerUser := db.Users["viewer"]
	assert.True(t, viewerUser.CheckPassword("brand-new-pass"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/ghost/reset-password", strings.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUsersOmitsHashes(t *testing.T) {
	admin := account(t, "admin", models.RoleAdmin)
	viewer := account(t, "viewer", models.RoleUser)
	s := newUserStore(t, admin, viewer)
	router := userRouter(NewUserAdminHandler(s), admin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "viewer", users[1].Username)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
}
