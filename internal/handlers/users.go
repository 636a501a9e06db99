package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/occupancy"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler serves admin operations on a single account. Tenant accounts
// go through the reconciler so their apartment stays consistent.
type UserHandler struct {
	authService *auth.Service
	users       db.UserCollection
	reconciler  *occupancy.Reconciler
}

// NewUserHandler creates the admin account handler.
func NewUserHandler(authService *auth.Service, users db.UserCollection, reconciler *occupancy.Reconciler) *UserHandler {
	return &UserHandler{authService: authService, users: users, reconciler: reconciler}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name       *string            `json:"name" validate:"omitempty,min=2,max=100"`
	Email      *string            `json:"email" validate:"omitempty,email"`
	Phone      *string            `json:"phone" validate:"omitempty,max=20"`
	Password   string             `json:"password"`
	IsActive   *bool              `json:"is_active"`
	WorkerInfo *models.WorkerInfo `json:"worker_info"`
}

// UpdateUser edits an account. A non-empty password is validated and
// re-hashed. Admins cannot deactivate themselves.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	self, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if self == id && req.IsActive != nil && !*req.IsActive {
		writeFailure(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	var hash string
	if req.Password != "" {
		if err := h.authService.ValidatePassword(req.Password); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		if hash, err = h.authService.HashPassword(req.Password); err != nil {
			writeError(w, r, err)
			return
		}
	}

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.IsDeleted {
		writeError(w, r, apperr.NotFound("user"))
		return
	}

	if user.Role == models.RoleTenant {
		user, err = h.reconciler.UpdateTenant(r.Context(), id, occupancy.TenantUpdate{
			Name: req.Name, Email: req.Email, Phone: req.Phone, IsActive: req.IsActive,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
			if existing, err := h.users.FindUserByEmail(r.Context(), *req.Email); err == nil && existing.ID != user.ID {
				writeFailure(w, http.StatusConflict, "Email already exists")
				return
			}
			user.Email = *req.Email
		}
		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.WorkerInfo != nil && user.Role == models.RoleWorker {
			user.WorkerInfo = req.WorkerInfo
		}
	}

	if hash != "" || user.Role != models.RoleTenant {
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := h.users.UpdateUser(r.Context(), user); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeMessage(w, http.StatusOK, "User updated successfully", user)
}

// DeleteUser soft-deletes an account. Deleting a tenant also terminates the
// lease and frees the apartment.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	self, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if self == id {
		writeFailure(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.IsDeleted {
		writeError(w, r, apperr.NotFound("user"))
		return
	}

	if user.Role == models.RoleTenant {
		err = h.reconciler.DeleteTenant(r.Context(), id)
	} else {
		now := time.Now()
		user.IsDeleted = true
		user.IsActive = false
		user.DeletedAt = &now
		err = h.users.UpdateUser(r.Context(), user)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully", nil)
}

// ToggleUserStatus flips the active flag. Admins cannot deactivate
// themselves.
func (h *UserHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	self, id, err := h.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if self == id {
		writeFailure(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user.IsDeleted {
		writeError(w, r, apperr.NotFound("user"))
		return
	}

	active := !user.IsActive
	if user.Role == models.RoleTenant {
		active, _, err = h.reconciler.ToggleStatus(r.Context(), id)
	} else {
		user.IsActive = active
		err = h.users.UpdateUser(r.Context(), user)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "User deactivated successfully"
	if active {
		msg = "User activated successfully"
	}
	writeMessage(w, http.StatusOK, msg, map[string]bool{"is_active": active})
}

// target returns the caller and the {id} path parameter.
func (h *UserHandler) target(r *http.Request) (primitive.ObjectID, primitive.ObjectID, error) {
	self, _, err := caller(r)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	return self, id, nil
}
