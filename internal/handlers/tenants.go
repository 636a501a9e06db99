package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/auth"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/occupancy"
)

// TenantHandler serves the admin tenant and apartment endpoints.
type TenantHandler struct {
	authService *auth.Service
	users       db.UserCollection
	apartments  db.ApartmentCollection
	reconciler  *occupancy.Reconciler
}

// NewTenantHandler creates a new tenant and apartment handler
func NewTenantHandler(authService *auth.Service, users db.UserCollection, apartments db.ApartmentCollection, reconciler *occupancy.Reconciler) *TenantHandler {
	return &TenantHandler{authService: authService, users: users, apartments: apartments, reconciler: reconciler}
}

type tenantRequest struct {
	Name             string                   `json:"name" validate:"required,min=2,max=100"`
	Email            string                   `json:"email" validate:"required,email"`
	Password         string                   `json:"password" validate:"required"`
	Phone            string                   `json:"phone" validate:"omitempty,max=20"`
	ApartmentID      string                   `json:"apartment_id"`
	LeaseStartDate   string                   `json:"lease_start_date"`
	LeaseEndDate     string                   `json:"lease_end_date"`
	MonthlyRent      float64                  `json:"monthly_rent" validate:"gte=0"`
	SecurityDeposit  float64                  `json:"security_deposit" validate:"gte=0"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact"`
	CurrentAddress   *models.Address          `json:"current_address"`
	PermanentAddress *models.Address          `json:"permanent_address"`
}

func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aptID, err := optionalID(q.Get("apartment_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenants, err := h.users.FindUsers(r.Context(), db.UserFilter{
		Role:           models.RoleTenant,
		IsActive:       queryBool(r, "is_active"),
		IncludeDeleted: q.Get("include_deleted") == "true",
		Search:         q.Get("search"),
		ApartmentID:    aptID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, tenants)
}

func (h *TenantHandler) TenantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reconciler.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
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
	if user.Role != models.RoleTenant {
		writeError(w, r, apperr.NotFound("tenant"))
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	aptID, err := optionalID(req.ApartmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := optionalDate(req.LeaseStartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := optionalDate(req.LeaseEndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := checkLease(start, end); err != nil {
		writeError(w, r, err)
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
		TenantInfo: &models.TenantInfo{
			ApartmentID:      aptID,
			LeaseStartDate:   start,
			LeaseEndDate:     end,
			MonthlyRent:      req.MonthlyRent,
			SecurityDeposit:  req.SecurityDeposit,
			EmergencyContact: req.EmergencyContact,
			CurrentAddress:   req.CurrentAddress,
			PermanentAddress: req.PermanentAddress,
		},
	}
	if err := h.reconciler.CreateTenant(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Tenant created successfully", user)
}

type tenantUpdateRequest struct {
	Name             *string                  `json:"name" validate:"omitempty,min=2,max=100"`
	Email            *string                  `json:"email" validate:"omitempty,email"`
	Phone            *string                  `json:"phone" validate:"omitempty,max=20"`
	IsActive         *bool                    `json:"is_active"`
	ApartmentID      *string                  `json:"apartment_id"`
	LeaseStartDate   *string                  `json:"lease_start_date"`
	LeaseEndDate     *string                  `json:"lease_end_date"`
	MonthlyRent      *float64                 `json:"monthly_rent" validate:"omitempty,gte=0"`
	SecurityDeposit  *float64                 `json:"security_deposit" validate:"omitempty,gte=0"`
	EmergencyContact *models.EmergencyContact `json:"emergency_contact"`
	CurrentAddress   *models.Address          `json:"current_address"`
	PermanentAddress *models.Address          `json:"permanent_address"`
}

// UpdateTenant edits profile and lease data. An empty apartment_id removes
// the assignment.
func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tenantUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	upd := occupancy.TenantUpdate{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		IsActive:         req.IsActive,
		MonthlyRent:      req.MonthlyRent,
		SecurityDeposit:  req.SecurityDeposit,
		EmergencyContact: req.EmergencyContact,
		CurrentAddress:   req.CurrentAddress,
		PermanentAddress: req.PermanentAddress,
	}
	if req.ApartmentID != nil {
		if *req.ApartmentID == "" {
			upd.ClearApartment = true
		} else if upd.ApartmentID, err = optionalID(*req.ApartmentID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.LeaseStartDate != nil {
		if upd.LeaseStartDate, err = optionalDate(*req.LeaseStartDate); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.LeaseEndDate != nil {
		if upd.LeaseEndDate, err = optionalDate(*req.LeaseEndDate); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := checkLease(upd.LeaseStartDate, upd.LeaseEndDate); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.reconciler.UpdateTenant(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tenant updated successfully", user)
}

func (h *TenantHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.reconciler.DeleteTenant(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tenant deleted successfully", nil)
}

func (h *TenantHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, result, err := h.reconciler.ToggleStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Tenant deactivated"
	if active {
		msg = "Tenant activated"
	}
	writeMessage(w, http.StatusOK, msg, map[string]any{"is_active": active, "reactivation": result})
}

// TenantHistory returns the tenant with their bills, consumption and totals.
func (h *TenantHandler) TenantHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.reconciler.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, history)
}

func (h *TenantHandler) HistoricalTenants(w http.ResponseWriter, r *http.Request) {
	users, err := h.reconciler.HistoricalTenants(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, users)
}

type archiveRequest struct {
	ReasonForLeaving string `json:"reason_for_leaving" validate:"max=500"`
}

func (h *TenantHandler) ArchiveTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req archiveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.reconciler.Archive(r.Context(), id, req.ReasonForLeaving)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tenant archived successfully", user)
}

// RefreshLeaseStatuses runs the lease status job on demand.
func (h *TenantHandler) RefreshLeaseStatuses(w http.ResponseWriter, r *http.Request) {
	updated, err := h.reconciler.RefreshLeaseStatuses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Lease statuses updated", map[string]int{"updated": updated})
}

func checkLease(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperr.Validation("lease end date cannot be before lease start date")
	}
	return nil
}

type apartmentRequest struct {
	UnitNumber  string               `json:"unit_number" validate:"required"`
	Building    string               `json:"building" validate:"required"`
	Floor       int                  `json:"floor" validate:"gte=0"`
	Type        models.ApartmentType `json:"type" validate:"required,oneof=1BHK 2BHK 3BHK Penthouse"`
	Bedrooms    int                  `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int                  `json:"bathrooms" validate:"gte=0"`
	Area        float64              `json:"area" validate:"gte=0"`
	Rent        float64              `json:"rent" validate:"gte=0"`
	Deposit     float64              `json:"deposit" validate:"gte=0"`
	Amenities   []string             `json:"amenities"`
	Description string               `json:"description"`
}

func (req apartmentRequest) apartment() *models.Apartment {
	return &models.Apartment{
		UnitNumber:  req.UnitNumber,
		Building:    req.Building,
		Floor:       req.Floor,
		Type:        req.Type,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		Area:        req.Area,
		Rent:        req.Rent,
		Deposit:     req.Deposit,
		Amenities:   req.Amenities,
		Description: req.Description,
	}
}

func (h *TenantHandler) ListApartments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apartments, err := h.apartments.FindApartments(r.Context(), db.ApartmentFilter{
		IsOccupied: queryBool(r, "is_occupied"),
		Building:   q.Get("building"),
		Type:       models.ApartmentType(q.Get("type")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, apartments)
}

func (h *TenantHandler) AvailableApartments(w http.ResponseWriter, r *http.Request) {
	vacant := false
	apartments, err := h.apartments.FindApartments(r.Context(), db.ApartmentFilter{IsOccupied: &vacant})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, apartments)
}

func (h *TenantHandler) GetApartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	apt, err := h.apartments.FindApartmentByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, apt)
}

func (h *TenantHandler) CreateApartment(w http.ResponseWriter, r *http.Request) {
	var req apartmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	apt := req.apartment()
	if err := h.reconciler.CreateApartment(r.Context(), apt); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Apartment created successfully", apt)
}

func (h *TenantHandler) UpdateApartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apartmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	apt := req.apartment()
	apt.ID = id
	if err := h.reconciler.UpdateApartment(r.Context(), apt); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Apartment updated successfully", apt)
}

func (h *TenantHandler) DeleteApartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.reconciler.DeleteApartment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Apartment deleted successfully", nil)
}
