package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camden-git/photoframebackend/models"
	"github.com/camden-git/photoframebackend/store"
)

const jwtExpirationHours = 24

var (
	ErrUnknownUser   = errors.New("unknown user")
	ErrWrongPassword = errors.New("wrong password")
)

type AuthHandler struct {
	Users     *store.Store[models.UserDB]
	JWTSecret []byte
	// LoginLimiter throttles password attempts per client IP.
	LoginLimiter *IPRateLimiter
}

func NewAuthHandler(users *store.Store[models.UserDB], jwtSecret string) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		JWTSecret:    []byte(jwtSecret),
		LoginLimiter: NewIPRateLimiter(LoginRatePerMinute, LoginBurst),
	}
}

// EnsureAdminAccount seeds the default admin account when no users exist.
// The generated password is logged once; it should be changed immediately.
func (h *AuthHandler) EnsureAdminAccount() error {
	return h.Users.Update(func(db *models.UserDB) error {
		if len(db.Users) > 0 {
			return nil
		}
		buf := make([]byte, 9)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating admin password: %w", err)
		}
		password := hex.EncodeToString(buf)

		admin := models.User{Username: "admin", Role: models.RoleAdmin, CreatedAt: time.Now()}
		if err := admin.SetPassword(password); err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}
		db.Users["admin"] = admin
		log.Printf("auth: created default admin account (username 'admin', password '%s'); change it now", password)
		return nil
	})
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.LoginLimiter.Allow(clientIP(r)) {
		WriteAPIError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again shortly")
		return
	}

	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}

	db, err := h.Users.Load()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, ok := db.Users[payload.Username]
	if !ok || !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	expirationTime := time.Now().Add(jwtExpirationHours * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   user.Username,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "photoframebackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.JWTSecret)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to generate token")
		return
	}

	userForResponse := user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userForResponse,
		ExpiresAt: expirationTime,
	})
}

type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "could not retrieve user from context")
		return
	}

	var payload ChangePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "invalid request payload")
		return
	}
	if len(payload.NewPassword) < 8 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_request", "new password must be at least 8 characters")
		return
	}

	err := h.Users.Update(func(db *models.UserDB) error {
		stored, ok := db.Users[user.Username]
		if !ok {
			return ErrUnknownUser
		}
		if !stored.CheckPassword(payload.CurrentPassword) {
			return ErrWrongPassword
		}
		if err := stored.SetPassword(payload.NewPassword); err != nil {
			return err
		}
		db.Users[user.Username] = stored
		return nil
	})
	if err != nil {
		switch err {
		case ErrWrongPassword:
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "current password is incorrect")
		case ErrUnknownUser:
			WriteAPIError(w, http.StatusNotFound, "not_found", "user no longer exists")
		default:
			writeDomainError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// CurrentUser retrieves the authenticated user from the request context.
// This handler should be protected by the AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "could not retrieve user from context")
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""
	writeJSON(w, http.StatusOK, userForResponse)
}
