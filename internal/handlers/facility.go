package handlers

import (
	"net/http"

	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/facility"
	"github.com/ukydev/apartment-management/internal/models"
)

// FacilityHandler serves maintenance tickets, worker leave and rooftop bookings.
type FacilityHandler struct {
	facility *facility.Service
	users    db.UserCollection
}

// NewFacilityHandler creates a new maintenance, leave and rooftop handler
func NewFacilityHandler(fac *facility.Service, users db.UserCollection) *FacilityHandler {
	return &FacilityHandler{facility: fac, users: users}
}

type maintenanceRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	Category    string `json:"category" validate:"required"`
	Priority    string `json:"priority"`
}

func (h *FacilityHandler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req maintenanceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.facility.CreateMaintenance(r.Context(), tenantID, facility.MaintenanceInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Maintenance request submitted", ticket)
}

func maintenanceFilter(r *http.Request) db.MaintenanceFilter {
	q := r.URL.Query()
	return db.MaintenanceFilter{
		Status:   models.MaintenanceStatus(q.Get("status")),
		Priority: q.Get("priority"),
	}
}

func (h *FacilityHandler) MyMaintenance(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := maintenanceFilter(r)
	filter.TenantID = &tenantID
	h.listMaintenance(w, r, filter)
}

// AssignedMaintenance lists the tickets assigned to the calling worker.
func (h *FacilityHandler) AssignedMaintenance(w http.ResponseWriter, r *http.Request) {
	workerID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := maintenanceFilter(r)
	filter.AssignedTo = &workerID
	h.listMaintenance(w, r, filter)
}

// WorkerDashboard summarises the calling worker's tickets and leave.
func (h *FacilityHandler) WorkerDashboard(w http.ResponseWriter, r *http.Request) {
	workerID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dash, err := h.facility.WorkerDashboard(r.Context(), workerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, dash)
}

func (h *FacilityHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	filter := maintenanceFilter(r)
	var err error
	if filter.TenantID, err = optionalID(r.URL.Query().Get("tenant_id")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.AssignedTo, err = optionalID(r.URL.Query().Get("assigned_to")); err != nil {
		writeError(w, r, err)
		return
	}
	h.listMaintenance(w, r, filter)
}

func (h *FacilityHandler) listMaintenance(w http.ResponseWriter, r *http.Request, filter db.MaintenanceFilter) {
	tickets, err := h.facility.ListMaintenance(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, tickets)
}

type assignRequest struct {
	WorkerID string `json:"worker_id" validate:"required"`
	Notes    string `json:"notes" validate:"max=1000"`
}

func (h *FacilityHandler) AssignMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	workerID, err := optionalID(req.WorkerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.facility.AssignMaintenance(r.Context(), id, *workerID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Maintenance request assigned", ticket)
}

type maintenanceStatusRequest struct {
	Status models.MaintenanceStatus `json:"status" validate:"required"`
	Notes  string                   `json:"notes" validate:"max=2000"`
}

// UpdateMaintenanceStatus moves a ticket along its lifecycle. Workers may
// only touch tickets assigned to them.
func (h *FacilityHandler) UpdateMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req maintenanceStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	actor, err := h.users.FindUserByID(r.Context(), actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.facility.UpdateMaintenanceStatus(r.Context(), id, actor, req.Status, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Maintenance status updated", ticket)
}

type feedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

func (h *FacilityHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req feedbackRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.facility.SubmitFeedback(r.Context(), id, tenantID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Feedback submitted", ticket)
}

type leaveRequest struct {
	LeaveType string `json:"leave_type" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

func (h *FacilityHandler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	workerID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req leaveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	leave, err := h.facility.RequestLeave(r.Context(), workerID, facility.LeaveInput{
		LeaveType: req.LeaveType,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Leave request submitted", leave)
}

func (h *FacilityHandler) MyLeaves(w http.ResponseWriter, r *http.Request) {
	workerID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.listLeaves(w, r, db.LeaveFilter{WorkerID: &workerID, Status: models.LeaveStatus(r.URL.Query().Get("status"))})
}

func (h *FacilityHandler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	workerID, err := optionalID(r.URL.Query().Get("worker_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.listLeaves(w, r, db.LeaveFilter{WorkerID: workerID, Status: models.LeaveStatus(r.URL.Query().Get("status"))})
}

func (h *FacilityHandler) listLeaves(w http.ResponseWriter, r *http.Request, filter db.LeaveFilter) {
	leaves, err := h.facility.ListLeaves(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, leaves)
}

type leaveReviewRequest struct {
	Status models.LeaveStatus `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string             `json:"admin_notes" validate:"max=1000"`
}

func (h *FacilityHandler) ReviewLeave(w http.ResponseWriter, r *http.Request) {
	adminID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req leaveReviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	leave, err := h.facility.ReviewLeave(r.Context(), id, adminID, req.Status, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Leave request "+string(leave.Status), leave)
}

type reservationRequest struct {
	ReservationDate string `json:"reservation_date" validate:"required"`
	TimeSlot        string `json:"time_slot" validate:"required"`
	NumberOfGuests  int    `json:"number_of_guests" validate:"required,gte=1"`
	Purpose         string `json:"purpose" validate:"max=500"`
	SpecialRequests string `json:"special_requests" validate:"max=500"`
}

func (h *FacilityHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reservationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	day, err := parseDate(req.ReservationDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.facility.Reserve(r.Context(), tenantID, facility.ReservationInput{
		ReservationDate: day,
		TimeSlot:        req.TimeSlot,
		NumberOfGuests:  req.NumberOfGuests,
		Purpose:         req.Purpose,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Reservation requested", res)
}

func reservationFilter(r *http.Request) (db.ReservationFilter, error) {
	q := r.URL.Query()
	day, err := optionalDate(q.Get("date"))
	if err != nil {
		return db.ReservationFilter{}, err
	}
	return db.ReservationFilter{
		Status:   models.ReservationStatus(q.Get("status")),
		Date:     day,
		TimeSlot: q.Get("time_slot"),
	}, nil
}

func (h *FacilityHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := reservationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.TenantID = &tenantID
	h.listReservations(w, r, filter)
}

func (h *FacilityHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	filter, err := reservationFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.listReservations(w, r, filter)
}

func (h *FacilityHandler) listReservations(w http.ResponseWriter, r *http.Request, filter db.ReservationFilter) {
	reservations, err := h.facility.ListReservations(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, reservations)
}

func (h *FacilityHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.facility.CancelReservation(r.Context(), id, tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Reservation cancelled", res)
}

type reservationReviewRequest struct {
	Status models.ReservationStatus `json:"status" validate:"required,oneof=confirmed cancelled"`
	Notes  string                   `json:"admin_notes" validate:"max=1000"`
}

func (h *FacilityHandler) ReviewReservation(w http.ResponseWriter, r *http.Request) {
	adminID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reservationReviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.facility.ReviewReservation(r.Context(), id, adminID, req.Status, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Reservation "+string(res.Status), res)
}
