package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
)

// AuthHandler handles authentication and account requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		writeError(w, r, err)
		return
	}

	switch err := h.authService.Authenticate(user, req.Password); {
	case errors.Is(err, auth.ErrUserInactive):
		writeFailure(w, http.StatusUnauthorized, "Account is deactivated")
		return
	case err != nil:
		writeFailure(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID); err != nil {
		log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	writeData(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=20"`
}

// UpdateProfile updates the current user's own contact details
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Email != "" && !strings.EqualFold(req.Email, user.Email) {
		existing, err := h.userCollection.FindUserByEmail(r.Context(), req.Email)
		if err == nil && existing.ID != user.ID {
			writeFailure(w, http.StatusConflict, "Email already exists")
			return
		}
		user.Email = req.Email
	}

	if err := h.userCollection.UpdateUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Profile updated successfully", user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.authService.ValidatePassword(req.NewPassword); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		writeFailure(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user.PasswordHash = hash
	if err := h.userCollection.UpdateUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password changed successfully", nil)
}

type createUserRequest struct {
	Name       string             `json:"name" validate:"required,min=2,max=100"`
	Email      string             `json:"email" validate:"required,email"`
	Password   string             `json:"password" validate:"required"`
	Phone      string             `json:"phone" validate:"omitempty,max=20"`
	Role       models.Role        `json:"role" validate:"required,oneof=admin worker"`
	WorkerInfo *models.WorkerInfo `json:"worker_info"`
}

// CreateUser registers a staff account. Tenants are created through the
// tenant endpoints so their apartment is reconciled.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.userCollection.FindUserByEmail(r.Context(), req.Email); err == nil {
		writeFailure(w, http.StatusConflict, "Email already exists")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         req.Role,
		IsActive:     true,
	}
	if req.Role == models.RoleWorker {
		user.WorkerInfo = req.WorkerInfo
	}
	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "User created successfully", user)
}

// ListUsers lists accounts, optionally filtered by ?role= and ?search=.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := db.UserFilter{
		Role:     models.Role(r.URL.Query().Get("role")),
		IsActive: queryBool(r, "is_active"),
		Search:   r.URL.Query().Get("search"),
	}
	if filter.Role != "" && !models.IsValidRole(filter.Role) {
		writeFailure(w, http.StatusBadRequest, "Invalid role")
		return
	}
	users, err := h.userCollection.FindUsers(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, users)
}
