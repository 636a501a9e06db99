package facility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/db/memdb"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *memdb.Store
	svc   *Service
	ctx   context.Context
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memdb.New()
	f := &fixture{store: store, svc: NewService(store.Stores()), ctx: context.Background(), clock: fixedNow}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) user(t *testing.T, email string, role models.Role, info *models.TenantInfo) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, Role: role, Phone: "555-0101", IsActive: true, TenantInfo: info}
	require.NoError(t, f.store.InsertUser(f.ctx, u))
	return u
}

func (f *fixture) housedTenant(t *testing.T, email string) *models.User {
	t.Helper()
	aptID := primitive.NewObjectID()
	return f.user(t, email, models.RoleTenant, &models.TenantInfo{ApartmentID: &aptID, RoomNumber: "A101"})
}

func TestBeverageCatalog(t *testing.T) {
	f := newFixture(t)

	b := &models.Beverage{Name: "Cola", Price: 2.5, Category: models.CategoryNonAlcoholic, IsAvailable: true, Stock: 10}
	require.NoError(t, f.svc.CreateBeverage(f.ctx, b))

	err := f.svc.CreateBeverage(f.ctx, &models.Beverage{Name: "Free", Price: 0, Category: models.CategoryAlcoholic})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	off := false
	updated, err := f.svc.UpdateBeverage(f.ctx, b.ID, BeverageUpdate{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	available, err := f.svc.ListBeverages(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, available)

	negative := -1.0
	_, err = f.svc.UpdateBeverage(f.ctx, b.ID, BeverageUpdate{Price: &negative})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.DeleteBeverage(f.ctx, b.ID))
	_, err = f.svc.UpdateBeverage(f.ctx, b.ID, BeverageUpdate{IsAvailable: &off})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateMaintenance(t *testing.T) {
	f := newFixture(t)
	tenant := f.housedTenant(t, "t1@example.com")

	req, err := f.svc.CreateMaintenance(f.ctx, tenant.ID, MaintenanceInput{Title: "Leak", Description: "Kitchen sink", Category: "Plumbing"})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenancePending, req.Status)
	assert.Equal(t, "Medium", req.Priority)
	assert.Equal(t, *tenant.ApartmentID(), req.ApartmentID)

	homeless := f.user(t, "t2@example.com", models.RoleTenant, &models.TenantInfo{})
	_, err = f.svc.CreateMaintenance(f.ctx, homeless.ID, MaintenanceInput{Title: "Leak", Description: "x", Category: "Plumbing"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.CreateMaintenance(f.ctx, tenant.ID, MaintenanceInput{Title: "Leak", Description: "x", Category: "Roofing"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMaintenanceLifecycle(t *testing.T) {
	f := newFixture(t)
	tenant := f.housedTenant(t, "t1@example.com")
	worker := f.user(t, "w1@example.com", models.RoleWorker, nil)
	other := f.user(t, "w2@example.com", models.RoleWorker, nil)
	admin := f.user(t, "admin@example.com", models.RoleAdmin, nil)

	req, err := f.svc.CreateMaintenance(f.ctx, tenant.ID, MaintenanceInput{Title: "No power", Description: "Bedroom", Category: "Electrical", Priority: "High"})
	require.NoError(t, err)

	_, err = f.svc.AssignMaintenance(f.ctx, req.ID, tenant.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	req, err = f.svc.AssignMaintenance(f.ctx, req.ID, worker.ID, "urgent")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceAssigned, req.Status)
	assert.Equal(t, worker.ID, *req.AssignedTo)

	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, other, models.MaintenanceInProgress, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceCompleted, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	req, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceInProgress, "on it")
	require.NoError(t, err)
	require.NotNil(t, req.StartedDate)

	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceCancelled, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	f.clock = f.clock.Add(90 * time.Minute)
	req, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceCompleted, "replaced breaker")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, req.Status)
	assert.Equal(t, "1.5 hours", req.ActualCompletionTime)
	assert.Equal(t, "replaced breaker", req.WorkNotes)

	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, admin, models.MaintenanceCancelled, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.AssignMaintenance(f.ctx, req.ID, worker.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture(t)
	tenant := f.housedTenant(t, "t1@example.com")
	stranger := f.housedTenant(t, "t2@example.com")
	worker := f.user(t, "w1@example.com", models.RoleWorker, nil)

	req, err := f.svc.CreateMaintenance(f.ctx, tenant.ID, MaintenanceInput{Title: "Paint", Description: "Hall", Category: "Painting"})
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(f.ctx, req.ID, tenant.ID, 5, "")
	assert.ErrorIs(t, err, apperr.ErrValidation, "ticket not completed yet")

	_, err = f.svc.AssignMaintenance(f.ctx, req.ID, worker.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceInProgress, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceCompleted, "")
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(f.ctx, req.ID, stranger.ID, 4, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.SubmitFeedback(f.ctx, req.ID, tenant.ID, 6, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req, err = f.svc.SubmitFeedback(f.ctx, req.ID, tenant.ID, 4, "tidy work")
	require.NoError(t, err)
	require.NotNil(t, req.Feedback)
	assert.Equal(t, 4, req.Feedback.Rating)
}

func TestLeaveRequests(t *testing.T) {
	f := newFixture(t)
	worker := f.user(t, "w1@example.com", models.RoleWorker, nil)
	admin := f.user(t, "admin@example.com", models.RoleAdmin, nil)
	start := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.RequestLeave(f.ctx, worker.ID, LeaveInput{LeaveType: "Sick", StartDate: start, EndDate: start.AddDate(0, 0, -1), Reason: "flu"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.RequestLeave(f.ctx, worker.ID, LeaveInput{LeaveType: "Sabbatical", StartDate: start, EndDate: start, Reason: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	leave, err := f.svc.RequestLeave(f.ctx, worker.ID, LeaveInput{LeaveType: "Vacation", StartDate: start, EndDate: start.AddDate(0, 0, 4), Reason: "trip"})
	require.NoError(t, err)
	assert.Equal(t, 5, leave.TotalDays)
	assert.Equal(t, models.LeavePending, leave.Status)

	_, err = f.svc.ReviewLeave(f.ctx, leave.ID, admin.ID, models.LeavePending, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	leave, err = f.svc.ReviewLeave(f.ctx, leave.ID, admin.ID, models.LeaveApproved, "enjoy")
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, leave.Status)
	require.NotNil(t, leave.ReviewedAt)

	_, err = f.svc.ReviewLeave(f.ctx, leave.ID, admin.ID, models.LeaveRejected, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	mine, err := f.svc.ListLeaves(f.ctx, db.LeaveFilter{WorkerID: &worker.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestRooftopReservations(t *testing.T) {
	f := newFixture(t)
	t1 := f.housedTenant(t, "t1@example.com")
	t2 := f.housedTenant(t, "t2@example.com")
	admin := f.user(t, "admin@example.com", models.RoleAdmin, nil)
	day := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Reserve(f.ctx, t1.ID, ReservationInput{ReservationDate: day, TimeSlot: "brunch", NumberOfGuests: 4})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.Reserve(f.ctx, t1.ID, ReservationInput{ReservationDate: day, TimeSlot: "evening", NumberOfGuests: 21})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	first, err := f.svc.Reserve(f.ctx, t1.ID, ReservationInput{ReservationDate: day, TimeSlot: "evening", NumberOfGuests: 6, Purpose: "birthday"})
	require.NoError(t, err)
	assert.Equal(t, "A101", first.RoomNumber)
	assert.Equal(t, "555-0101", first.Phone)

	// Pending bookings do not block the slot.
	second, err := f.svc.Reserve(f.ctx, t2.ID, ReservationInput{ReservationDate: day.Add(3 * time.Hour), TimeSlot: "evening", NumberOfGuests: 2})
	require.NoError(t, err)

	_, err = f.svc.ReviewReservation(f.ctx, first.ID, admin.ID, models.ReservationConfirmed, "")
	require.NoError(t, err)

	_, err = f.svc.Reserve(f.ctx, t2.ID, ReservationInput{ReservationDate: day, TimeSlot: "evening", NumberOfGuests: 2})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.svc.ReviewReservation(f.ctx, second.ID, admin.ID, models.ReservationConfirmed, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.Reserve(f.ctx, t2.ID, ReservationInput{ReservationDate: day, TimeSlot: "morning", NumberOfGuests: 2})
	assert.NoError(t, err)

	_, err = f.svc.CancelReservation(f.ctx, first.ID, t2.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	cancelled, err := f.svc.CancelReservation(f.ctx, first.ID, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)

	_, err = f.svc.CancelReservation(f.ctx, first.ID, t1.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	confirmed, err := f.svc.ReviewReservation(f.ctx, second.ID, admin.ID, models.ReservationConfirmed, "ok")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, *confirmed.ReviewedBy)
}

func TestWorkerDashboard(t *testing.T) {
	f := newFixture(t)
	tenant := f.housedTenant(t, "t1@example.com")
	worker := f.user(t, "w1@example.com", models.RoleWorker, nil)
	other := f.user(t, "w2@example.com", models.RoleWorker, nil)
	admin := f.user(t, "admin@example.com", models.RoleAdmin, nil)

	assign := func(to *models.User) *models.MaintenanceRequest {
		req, err := f.svc.CreateMaintenance(f.ctx, tenant.ID, MaintenanceInput{Title: "Leak", Description: "Kitchen", Category: "Plumbing"})
		require.NoError(t, err)
		req, err = f.svc.AssignMaintenance(f.ctx, req.ID, to.ID, "")
		require.NoError(t, err)
		f.clock = f.clock.Add(time.Minute)
		return req
	}
	complete := func(req *models.MaintenanceRequest, took time.Duration) {
		_, err := f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceInProgress, "")
		require.NoError(t, err)
		f.clock = f.clock.Add(took)
		_, err = f.svc.UpdateMaintenanceStatus(f.ctx, req.ID, worker, models.MaintenanceCompleted, "")
		require.NoError(t, err)
	}

	f.clock = fixedNow.AddDate(0, -1, 0)
	complete(assign(worker), 10*time.Hour)

	f.clock = fixedNow
	complete(assign(worker), 90*time.Minute)
	complete(assign(worker), 150*time.Minute)
	started := assign(worker)
	_, err := f.svc.UpdateMaintenanceStatus(f.ctx, started.ID, worker, models.MaintenanceInProgress, "")
	require.NoError(t, err)
	var waiting []*models.MaintenanceRequest
	for i := 0; i < 3; i++ {
		waiting = append(waiting, assign(worker))
	}
	assign(other)

	start := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	approved, err := f.svc.RequestLeave(f.ctx, worker.ID, LeaveInput{LeaveType: "Vacation", StartDate: start, EndDate: start.AddDate(0, 0, 2), Reason: "trip"})
	require.NoError(t, err)
	_, err = f.svc.ReviewLeave(f.ctx, approved.ID, admin.ID, models.LeaveApproved, "")
	require.NoError(t, err)
	_, err = f.svc.RequestLeave(f.ctx, worker.ID, LeaveInput{LeaveType: "Sick", StartDate: start.AddDate(0, 1, 0), EndDate: start.AddDate(0, 1, 0), Reason: "checkup"})
	require.NoError(t, err)

	d, err := f.svc.WorkerDashboard(f.ctx, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, MaintenanceCounts{Total: 7, Pending: 3, InProgress: 1, Completed: 3}, d.MaintenanceStats)
	assert.Equal(t, LeaveCounts{Total: 2, Pending: 1, Approved: 1}, d.LeaveStats)
	assert.Equal(t, 2, d.Monthly.MaintenanceCompleted)
	assert.Equal(t, 2.0, d.Monthly.AverageCompletionHours)

	require.Len(t, d.RecentMaintenance, 5)
	assert.Equal(t, waiting[2].ID, d.RecentMaintenance[0].ID)
	assert.Equal(t, started.ID, d.RecentMaintenance[3].ID)
	assert.Len(t, d.RecentLeaves, 2)

	_, err = f.svc.WorkerDashboard(f.ctx, tenant.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
