package occupancy

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

func (f *fixture) leasedTenant(t *testing.T, email string, aptID *primitive.ObjectID, start, end time.Time) *models.User {
	t.Helper()
	user := &models.User{Name: email, Email: email, TenantInfo: &models.TenantInfo{
		ApartmentID: aptID, LeaseStartDate: &start, LeaseEndDate: &end, MonthlyRent: 900, SecurityDeposit: 1800,
	}}
	require.NoError(t, f.rec.CreateTenant(f.ctx, user))
	return user
}

func TestHistory_TotalsBillsAndConsumption(t *testing.T) {
	f := newFixture(t)
	t1 := f.tenant(t, "t1@example.com", nil)
	other := f.tenant(t, "t2@example.com", nil)

	for i, b := range []models.UtilityBill{
		{TenantID: t1.ID, BillNumber: "UB-1", Status: models.BillPaid, TotalAmount: 100.10},
		{TenantID: t1.ID, BillNumber: "UB-2", Status: models.BillPaid, TotalAmount: 50.20},
		{TenantID: t1.ID, BillNumber: "UB-3", Status: models.BillSent, TotalAmount: 75},
		{TenantID: other.ID, BillNumber: "UB-4", Status: models.BillPaid, TotalAmount: 999},
	} {
		bill := b
		require.NoError(t, f.store.InsertBill(f.ctx, &bill), "bill %d", i)
	}
	require.NoError(t, f.store.InsertConsumptions(f.ctx, []models.BeverageConsumption{
		{TenantID: t1.ID, BeverageName: "Cola", Quantity: 2, UnitPrice: 2.5, TotalAmount: 5},
		{TenantID: t1.ID, BeverageName: "Water", Quantity: 1, UnitPrice: 1.2, TotalAmount: 1.2},
		{TenantID: other.ID, BeverageName: "Cola", Quantity: 1, UnitPrice: 2.5, TotalAmount: 2.5},
	}))

	h, err := f.rec.History(f.ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, h.Tenant.ID)
	assert.Len(t, h.Bills, 3)
	assert.Len(t, h.Consumption, 2)
	assert.Equal(t, 3, h.Summary.TotalBills)
	assert.Equal(t, 150.3, h.Summary.TotalPayments)
	assert.Equal(t, 2, h.Summary.TotalBeverageOrders)
	assert.Equal(t, 6.2, h.Summary.TotalBeverageConsumption)
}

func TestHistory_DeletedTenantStillVisible(t *testing.T) {
	f := newFixture(t)
	t1 := f.tenant(t, "t1@example.com", nil)
	require.NoError(t, f.rec.DeleteTenant(f.ctx, t1.ID))

	h, err := f.rec.History(f.ctx, t1.ID)
	require.NoError(t, err)
	assert.True(t, h.Tenant.IsDeleted)
	assert.Equal(t, 1, h.Summary.LeaseRecords)

	_, err = f.rec.History(f.ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHistory_RejectsNonTenant(t *testing.T) {
	f := newFixture(t)
	worker := &models.User{Email: "w@example.com", Role: models.RoleWorker}
	require.NoError(t, f.store.InsertUser(f.ctx, worker))

	_, err := f.rec.History(f.ctx, worker.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHistoricalTenants(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.leasedTenant(t, "current@example.com", nil, now.AddDate(0, -1, 0), now.AddDate(0, 11, 0))
	older := f.leasedTenant(t, "older@example.com", nil, now.AddDate(-3, 0, 0), now.AddDate(-2, 0, 0))
	recent := f.leasedTenant(t, "recent@example.com", nil, now.AddDate(-2, 0, 0), now.AddDate(0, -1, 0))
	gone := f.leasedTenant(t, "gone@example.com", nil, now.AddDate(0, -6, 0), now.AddDate(0, 6, 0))
	require.NoError(t, f.rec.DeleteTenant(f.ctx, gone.ID))

	users, err := f.rec.HistoricalTenants(f.ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, gone.ID, users[0].ID)
	assert.Equal(t, recent.ID, users[1].ID)
	assert.Equal(t, older.ID, users[2].ID)
	assert.Equal(t, models.LeaseTerminated, users[0].TenantInfo.LeaseStatus)
	assert.Equal(t, models.LeaseExpired, users[1].TenantInfo.LeaseStatus)
}

func TestArchive_EndsLeaseAndReleasesApartment(t *testing.T) {
	f := newFixture(t)
	apt := f.apartment(t, "A101")
	now := time.Now()
	t1 := f.leasedTenant(t, "t1@example.com", &apt.ID, now.AddDate(0, -2, 0), now.AddDate(0, 10, 0))

	archived, err := f.rec.Archive(f.ctx, t1.ID, "relocated for work")
	require.NoError(t, err)
	assert.Equal(t, models.LeaseExpired, archived.TenantInfo.LeaseStatus)

	a, u := f.reload(t, apt, t1)
	assert.False(t, a.IsOccupied)
	assert.Nil(t, a.CurrentTenant)
	assert.Nil(t, u.ApartmentID())
	assert.True(t, u.IsActive)
	assert.True(t, u.IsHistoricalRecord)
	assert.NotNil(t, u.TenantInfo.ArchivedAt)
	// stored status survives the write-time refresh
	assert.Equal(t, models.LeaseExpired, u.TenantInfo.LeaseStatus)

	require.Len(t, u.TenantInfo.LeaseHistory, 1)
	rec := u.TenantInfo.LeaseHistory[0]
	assert.Equal(t, "relocated for work", rec.Reason)
	assert.Equal(t, "A101", rec.RoomNumber)
	assert.Equal(t, 1800.0, rec.SecurityDeposit)
	assert.Greater(t, rec.StayDuration.Days, 300)

	_, err = f.rec.Archive(f.ctx, t1.ID, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestArchive_NewLeaseDatesReopen(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	t1 := f.leasedTenant(t, "t1@example.com", nil, now.AddDate(0, -2, 0), now.AddDate(0, 10, 0))
	archived, err := f.rec.Archive(f.ctx, t1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "archived", archived.TenantInfo.LeaseHistory[0].Reason)

	end := now.AddDate(1, 0, 0)
	updated, err := f.rec.UpdateTenant(f.ctx, t1.ID, TenantUpdate{LeaseEndDate: &end})
	require.NoError(t, err)
	assert.Nil(t, updated.TenantInfo.ArchivedAt)
	assert.Equal(t, models.LeaseActive, updated.TenantInfo.LeaseStatus)
}

func TestArchive_UnknownTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Archive(f.ctx, primitive.NewObjectID(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// staleUsers hands out lease statuses as they were before the lease window
// moved, the way documents look when nothing has written them in a while.
type staleUsers struct {
	db.UserCollection
	updates int
}

func (s *staleUsers) FindUsers(ctx context.Context, f db.UserFilter) ([]models.User, error) {
	users, err := s.UserCollection.FindUsers(ctx, f)
	for i := range users {
		if ti := users[i].TenantInfo; ti != nil && ti.LeaseStatus != models.LeaseTerminated {
			ti.LeaseStatus = models.LeaseActive
			users[i].IsHistoricalRecord = false
		}
	}
	return users, err
}

func (s *staleUsers) UpdateUser(ctx context.Context, u *models.User) error {
	s.updates++
	return s.UserCollection.UpdateUser(ctx, u)
}

func TestRefreshLeaseStatuses_PersistsOnlyChanges(t *testing.T) {
	store := memdb.New()
	stores := store.Stores()
	users := &staleUsers{UserCollection: stores.Users}
	stores.Users = users
	rec := NewReconciler(stores, nil)
	ctx := context.Background()
	now := time.Now()

	for _, u := range []*models.User{
		{Email: "active@example.com", TenantInfo: &models.TenantInfo{LeaseStartDate: ptr(now.AddDate(0, -1, 0)), LeaseEndDate: ptr(now.AddDate(0, 11, 0))}},
		{Email: "expired@example.com", TenantInfo: &models.TenantInfo{LeaseStartDate: ptr(now.AddDate(-1, 0, 0)), LeaseEndDate: ptr(now.AddDate(0, 0, -1))}},
		{Email: "upcoming@example.com", TenantInfo: &models.TenantInfo{LeaseStartDate: ptr(now.AddDate(0, 1, 0)), LeaseEndDate: ptr(now.AddDate(1, 1, 0))}},
	} {
		require.NoError(t, rec.CreateTenant(ctx, u))
	}
	users.updates = 0

	n, err := rec.RefreshLeaseStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, users.updates)

	expired, err := store.FindUserByEmail(ctx, "expired@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.LeaseExpired, expired.TenantInfo.LeaseStatus)
	assert.True(t, expired.IsHistoricalRecord)
}

func ptr(t time.Time) *time.Time { return &t }
