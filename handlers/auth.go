package handlers

import (
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"attendance/config"
	"attendance/database"
	"attendance/middleware"
	"attendance/models"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token              string       `json:"token"`
	User               *models.User `json:"user"`
	MustChangePassword bool         `json:"must_change_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	if err := database.GetDB().Where("username = ?", req.Username).First(&user).Error; err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := middleware.GenerateToken(&user, h.config.Auth.JWTExpiration)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to generate token")
		return
	}

	middleware.SetTokenCookie(w, token, h.config.Auth.JWTExpiration)
	render.JSON(w, r, LoginResponse{
		Token:              token,
		User:               &user,
		MustChangePassword: user.MustChangePassword,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeError(w, r, http.StatusBadRequest, "current password is incorrect")
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		writeError(w, r, http.StatusBadRequest, "passwords do not match")
		return
	}

	if len(req.NewPassword) < 5 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 5 characters")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user.PasswordHash = string(hashedPassword)
	user.MustChangePassword = false
	if err := database.GetDB().Save(user).Error; err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to update password")
		return
	}

	// Regenerate token with updated user info
	token, err := middleware.GenerateToken(user, h.config.Auth.JWTExpiration)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to generate token")
		return
	}

	middleware.SetTokenCookie(w, token, h.config.Auth.JWTExpiration)
	render.JSON(w, r, LoginResponse{Token: token, User: user})
}
