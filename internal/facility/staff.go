package facility

import (
	"context"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxGuests = 20

type LeaveInput struct {
	LeaveType string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

func (s *Service) RequestLeave(ctx context.Context, workerID primitive.ObjectID, in LeaveInput) (*models.LeaveRequest, error) {
	if !models.IsValidLeaveType(in.LeaveType) {
		return nil, apperr.Validation("unknown leave type %q", in.LeaveType)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, apperr.Validation("end date cannot be before start date")
	}
	if in.Reason == "" {
		return nil, apperr.Validation("reason is required")
	}
	if _, err := s.loadUser(ctx, workerID, models.RoleWorker); err != nil {
		return nil, err
	}

	req := &models.LeaveRequest{
		WorkerID:  workerID,
		LeaveType: in.LeaveType,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		TotalDays: models.LeaveDays(in.StartDate, in.EndDate),
		Reason:    in.Reason,
		Status:    models.LeavePending,
	}
	if err := s.leaves.InsertLeave(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) ListLeaves(ctx context.Context, filter db.LeaveFilter) ([]models.LeaveRequest, error) {
	return s.leaves.FindLeaves(ctx, filter)
}

// ReviewLeave approves or rejects a pending leave request.
func (s *Service) ReviewLeave(ctx context.Context, id, reviewer primitive.ObjectID, status models.LeaveStatus, notes string) (*models.LeaveRequest, error) {
	if status != models.LeaveApproved && status != models.LeaveRejected {
		return nil, apperr.Validation("status must be approved or rejected")
	}
	req, err := s.leaves.FindLeaveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != models.LeavePending {
		return nil, apperr.InvalidTransition("leave request", string(req.Status), string(status))
	}
	now := s.now()
	req.Status = status
	req.ReviewedBy = &reviewer
	req.ReviewedAt = &now
	req.AdminNotes = notes
	if err := s.leaves.UpdateLeave(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

type ReservationInput struct {
	ReservationDate time.Time
	TimeSlot        string
	NumberOfGuests  int
	Purpose         string
	SpecialRequests string
}

// Reserve books the rooftop. A slot already confirmed for someone else on
// the same day is a conflict.
func (s *Service) Reserve(ctx context.Context, tenantID primitive.ObjectID, in ReservationInput) (*models.RooftopReservation, error) {
	if !models.IsValidTimeSlot(in.TimeSlot) {
		return nil, apperr.Validation("unknown time slot %q", in.TimeSlot)
	}
	if in.NumberOfGuests < 1 || in.NumberOfGuests > maxGuests {
		return nil, apperr.Validation("number of guests must be between 1 and %d", maxGuests)
	}

	var res *models.RooftopReservation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		tenant, err := s.loadUser(ctx, tenantID, models.RoleTenant)
		if err != nil {
			return err
		}
		if err := s.ensureSlotFree(ctx, in.ReservationDate, in.TimeSlot, primitive.NilObjectID); err != nil {
			return err
		}

		res = &models.RooftopReservation{
			TenantID:        tenant.ID,
			Phone:           tenant.Phone,
			ReservationDate: in.ReservationDate,
			TimeSlot:        in.TimeSlot,
			NumberOfGuests:  in.NumberOfGuests,
			Purpose:         in.Purpose,
			SpecialRequests: in.SpecialRequests,
			Status:          models.ReservationPending,
		}
		if tenant.TenantInfo != nil {
			res.RoomNumber = tenant.TenantInfo.RoomNumber
		}
		return s.reservations.InsertReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) ensureSlotFree(ctx context.Context, day time.Time, slot string, except primitive.ObjectID) error {
	taken, err := s.reservations.FindReservations(ctx, db.ReservationFilter{
		Status:   models.ReservationConfirmed,
		Date:     &day,
		TimeSlot: slot,
	})
	if err != nil {
		return err
	}
	for _, r := range taken {
		if r.ID != except {
			return apperr.Conflict("rooftop is already booked for the %s slot on %s", slot, day.Format("2006-01-02"))
		}
	}
	return nil
}

func (s *Service) ListReservations(ctx context.Context, filter db.ReservationFilter) ([]models.RooftopReservation, error) {
	return s.reservations.FindReservations(ctx, filter)
}

// CancelReservation lets a tenant cancel their own booking unless it is over.
func (s *Service) CancelReservation(ctx context.Context, id, tenantID primitive.ObjectID) (*models.RooftopReservation, error) {
	res, err := s.reservations.FindReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.TenantID != tenantID {
		return nil, apperr.Forbidden("reservation belongs to another tenant")
	}
	if res.Status == models.ReservationCompleted || res.Status == models.ReservationCancelled {
		return nil, apperr.InvalidTransition("reservation", string(res.Status), string(models.ReservationCancelled))
	}
	res.Status = models.ReservationCancelled
	if err := s.reservations.UpdateReservation(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ReviewReservation confirms or cancels a booking on the admin's behalf.
func (s *Service) ReviewReservation(ctx context.Context, id, reviewer primitive.ObjectID, status models.ReservationStatus, notes string) (*models.RooftopReservation, error) {
	if status != models.ReservationConfirmed && status != models.ReservationCancelled {
		return nil, apperr.Validation("status must be confirmed or cancelled")
	}
	var res *models.RooftopReservation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.reservations.FindReservationByID(ctx, id)
		if err != nil {
			return err
		}
		if res.Status == models.ReservationCompleted || res.Status == models.ReservationCancelled {
			return apperr.InvalidTransition("reservation", string(res.Status), string(status))
		}
		if status == models.ReservationConfirmed {
			if err := s.ensureSlotFree(ctx, res.ReservationDate, res.TimeSlot, res.ID); err != nil {
				return err
			}
		}
		res.Status = status
		res.ReviewedBy = &reviewer
		res.AdminNotes = notes
		return s.reservations.UpdateReservation(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
