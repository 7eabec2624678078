package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrLastAdmin     = errors.New("cannot remove the last admin")
	ErrSelfDelete    = errors.New("cannot delete own account")
)

// UserAdminHandler manages accounts. All routes require the admin role.
type UserAdminHandler struct {
	Users *store.Store[models.UserDB]
}

func NewUserAdminHandler(users *store.Store[models.UserDB]) *UserAdminHandler {
	return &UserAdminHandler{Users: users}
}

func (h *UserAdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	db, err := h.Users.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	users := make([]models.User, 0, len(db.Users))
	for _, u := range db.Users {
		u.PasswordHash = ""
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	writeJSON(w, http.StatusOK, users)
}

type CreateUserPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UserAdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload CreateUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	if payload.Username == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}
	if len(payload.Password) < 8 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}
	if payload.Role == "" {
		payload.Role = models.RoleUser
	}
	if payload.Role != models.RoleAdmin && payload.Role != models.RoleUser {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "role must be 'admin' or 'user'")
		return
	}

	user := models.User{Username: payload.Username, Role: payload.Role, CreatedAt: time.Now()}
	if err := user.SetPassword(payload.Password); err != nil {
		writeDomainError(w, err)
		return
	}

	err := h.Users.Update(func(db *models.UserDB) error {
		if _, exists := db.Users[payload.Username]; exists {
			return ErrUsernameTaken
		}
		db.Users[payload.Username] = user
		return nil
	})
	if err != nil {
		if err == ErrUsernameTaken {
			WriteAPIError(w, http.StatusConflict, "conflict", "username already exists")
			return
		}
		writeDomainError(w, err)
		return
	}

	user.PasswordHash = ""
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserAdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	caller, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || caller == nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "could not retrieve user from context")
		return
	}

	err := h.Users.Update(func(db *models.UserDB) error {
		target, exists := db.Users[username]
		if !exists {
			return ErrUnknownUser
		}
		if username == caller.Username {
			return ErrSelfDelete
		}
		if target.IsAdmin() && adminCount(db) == 1 {
			return ErrLastAdmin
		}
		delete(db.Users, username)
		return nil
	})
	if err != nil {
		switch err {
		case ErrUnknownUser:
			WriteAPIError(w, http.StatusNotFound, "not_found", "user not found")
		case ErrSelfDelete:
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "cannot delete your own account")
		case ErrLastAdmin:
			WriteAPIError(w, http.StatusBadRequest, "invalid_request", "cannot delete the last admin account")
		default:
			writeDomainError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

type ResetPasswordPayload struct {
	Password string `json:"password"`
}

func (h *UserAdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var payload ResetPasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	if len(payload.Password) < 8 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "password must be at least 8 characters")
		return
	}

	err := h.Users.Update(func(db *models.UserDB) error {
		user, exists := db.Users[username]
		if !exists {
			return ErrUnknownUser
		}
		if err := user.SetPassword(payload.Password); err != nil {
			return err
		}
		db.Users[username] = user
		return nil
	})
	if err != nil {
		if err == ErrUnknownUser {
			WriteAPIError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}

func adminCount(db *models.UserDB) int {
	n := 0
	for _, u := range db.Users {
		if u.IsAdmin() {
			n++
		}
	}
	return n
}
