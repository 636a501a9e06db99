package memdb

import (
	"context"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) billNumberTaken(number string, except primitive.ObjectID) (bool, error) {
	bills, err := scan(s, db.BillsCollection, func(b *models.UtilityBill) bool {
		return b.BillNumber == number && b.ID != except
	})
	return len(bills) > 0, err
}

func (s *Store) InsertBill(ctx context.Context, bill *models.UtilityBill) error {
	defer s.lock(ctx)()
	if bill.ID.IsZero() {
		bill.ID = primitive.NewObjectID()
	}
	if taken, err := s.billNumberTaken(bill.BillNumber, bill.ID); err != nil {
		return err
	} else if taken || has(s, db.BillsCollection, bill.ID) {
		return db.ErrDuplicateKey
	}
	now := time.Now()
	bill.CreatedAt = now
	bill.UpdatedAt = now
	return put(s, db.BillsCollection, bill.ID, bill)
}

func (s *Store) FindBillByID(ctx context.Context, id primitive.ObjectID) (*models.UtilityBill, error) {
	defer s.lock(ctx)()
	b, ok, err := get[models.UtilityBill](s, db.BillsCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("bill")
	}
	return b, nil
}

func (s *Store) FindBills(ctx context.Context, f db.BillFilter) ([]models.UtilityBill, error) {
	defer s.lock(ctx)()
	return scan(s, db.BillsCollection, func(b *models.UtilityBill) bool {
		if f.TenantID != nil && b.TenantID != *f.TenantID {
			return false
		}
		if len(f.Statuses) > 0 {
			found := false
			for _, st := range f.Statuses {
				if b.Status == st {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		if f.DueBefore != nil && !b.DueDate.Before(*f.DueBefore) {
			return false
		}
		start := b.BillingPeriod.StartDate
		if f.PeriodStartFrom != nil && start.Before(*f.PeriodStartFrom) {
			return false
		}
		if f.PeriodStartTo != nil && !start.Before(*f.PeriodStartTo) {
			return false
		}
		if f.PeriodEndAfter != nil && !b.BillingPeriod.EndDate.After(*f.PeriodEndAfter) {
			return false
		}
		return true
	})
}

func (s *Store) BillNumberExists(ctx context.Context, number string) (bool, error) {
	defer s.lock(ctx)()
	return s.billNumberTaken(number, primitive.NilObjectID)
}

func (s *Store) UpdateBill(ctx context.Context, bill *models.UtilityBill, expected models.BillStatus) error {
	defer s.lock(ctx)()
	stored, ok, err := get[models.UtilityBill](s, db.BillsCollection, bill.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("bill")
	}
	if stored.Status != expected {
		return apperr.Conflict("bill %s is no longer %s", bill.BillNumber, expected)
	}
	if taken, err := s.billNumberTaken(bill.BillNumber, bill.ID); err != nil {
		return err
	} else if taken {
		return db.ErrDuplicateKey
	}
	bill.UpdatedAt = time.Now()
	return put(s, db.BillsCollection, bill.ID, bill)
}

func (s *Store) DeleteBill(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	if !has(s, db.BillsCollection, id) {
		return apperr.NotFound("bill")
	}
	delete(s.collection(db.BillsCollection), id)
	return nil
}

func (s *Store) InsertMaintenance(ctx context.Context, req *models.MaintenanceRequest) error {
	defer s.lock(ctx)()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	return put(s, db.MaintenanceCollName, req.ID, req)
}

func (s *Store) FindMaintenanceByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	defer s.lock(ctx)()
	r, ok, err := get[models.MaintenanceRequest](s, db.MaintenanceCollName, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("maintenance request")
	}
	return r, nil
}

func (s *Store) FindMaintenance(ctx context.Context, f db.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	defer s.lock(ctx)()
	return scan(s, db.MaintenanceCollName, func(r *models.MaintenanceRequest) bool {
		if f.TenantID != nil && r.TenantID != *f.TenantID {
			return false
		}
		if f.AssignedTo != nil && (r.AssignedTo == nil || *r.AssignedTo != *f.AssignedTo) {
			return false
		}
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		return f.Priority == "" || r.Priority == f.Priority
	})
}

func (s *Store) UpdateMaintenance(ctx context.Context, req *models.MaintenanceRequest) error {
	defer s.lock(ctx)()
	if !has(s, db.MaintenanceCollName, req.ID) {
		return apperr.NotFound("maintenance request")
	}
	req.UpdatedAt = time.Now()
	return put(s, db.MaintenanceCollName, req.ID, req)
}

func (s *Store) InsertLeave(ctx context.Context, req *models.LeaveRequest) error {
	defer s.lock(ctx)()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	return put(s, db.LeavesCollection, req.ID, req)
}

func (s *Store) FindLeaveByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error) {
	defer s.lock(ctx)()
	r, ok, err := get[models.LeaveRequest](s, db.LeavesCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("leave request")
	}
	return r, nil
}

func (s *Store) FindLeaves(ctx context.Context, f db.LeaveFilter) ([]models.LeaveRequest, error) {
	defer s.lock(ctx)()
	return scan(s, db.LeavesCollection, func(r *models.LeaveRequest) bool {
		if f.WorkerID != nil && r.WorkerID != *f.WorkerID {
			return false
		}
		return f.Status == "" || r.Status == f.Status
	})
}

func (s *Store) UpdateLeave(ctx context.Context, req *models.LeaveRequest) error {
	defer s.lock(ctx)()
	if !has(s, db.LeavesCollection, req.ID) {
		return apperr.NotFound("leave request")
	}
	req.UpdatedAt = time.Now()
	return put(s, db.LeavesCollection, req.ID, req)
}

func (s *Store) InsertReservation(ctx context.Context, res *models.RooftopReservation) error {
	defer s.lock(ctx)()
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	return put(s, db.ReservationsCollection, res.ID, res)
}

func (s *Store) FindReservationByID(ctx context.Context, id primitive.ObjectID) (*models.RooftopReservation, error) {
	defer s.lock(ctx)()
	r, ok, err := get[models.RooftopReservation](s, db.ReservationsCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("reservation")
	}
	return r, nil
}

func (s *Store) FindReservations(ctx context.Context, f db.ReservationFilter) ([]models.RooftopReservation, error) {
	defer s.lock(ctx)()
	var from, to time.Time
	if f.Date != nil {
		from, to = db.DayRange(*f.Date)
	}
	return scan(s, db.ReservationsCollection, func(r *models.RooftopReservation) bool {
		if f.TenantID != nil && r.TenantID != *f.TenantID {
			return false
		}
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		if f.TimeSlot != "" && r.TimeSlot != f.TimeSlot {
			return false
		}
		if f.Date != nil && (r.ReservationDate.Before(from) || !r.ReservationDate.Before(to)) {
			return false
		}
		return true
	})
}

func (s *Store) UpdateReservation(ctx context.Context, res *models.RooftopReservation) error {
	defer s.lock(ctx)()
	if !has(s, db.ReservationsCollection, res.ID) {
		return apperr.NotFound("reservation")
	}
	res.UpdatedAt = time.Now()
	return put(s, db.ReservationsCollection, res.ID, res)
}
