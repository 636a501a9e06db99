package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateApartment_StartsVacant(t *testing.T) {
	f := newFixture(t)
	someone := primitive.NewObjectID()
	apt := &models.Apartment{UnitNumber: "B201", Building: "B", Type: models.Apartment2BHK, IsOccupied: true, CurrentTenant: &someone}

	require.NoError(t, f.rec.CreateApartment(f.ctx, apt))
	stored, err := f.store.FindApartmentByID(f.ctx, apt.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOccupied)
	assert.Nil(t, stored.CurrentTenant)
}

func TestUpdateApartment_KeepsOccupancy(t *testing.T) {
	f := newFixture(t)
	apt := f.apartment(t, "A101")
	user := f.tenant(t, "t1@example.com", &apt.ID)

	edit := &models.Apartment{ID: apt.ID, UnitNumber: "A101", Building: "A", Type: models.Apartment1BHK, Rent: 1200}
	require.NoError(t, f.rec.UpdateApartment(f.ctx, edit))

	stored, _ := f.reload(t, apt, user)
	assert.Equal(t, 1200.0, stored.Rent)
	assert.True(t, stored.IsOccupied)
	require.NotNil(t, stored.CurrentTenant)
	assert.Equal(t, user.ID, *stored.CurrentTenant)
}

func TestDeleteApartment(t *testing.T) {
	f := newFixture(t)
	occupied := f.apartment(t, "A101")
	vacant := f.apartment(t, "A102")
	f.tenant(t, "t1@example.com", &occupied.ID)

	err := f.rec.DeleteApartment(f.ctx, occupied.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, f.rec.DeleteApartment(f.ctx, vacant.ID))
	_, err = f.store.FindApartmentByID(f.ctx, vacant.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	a1 := f.apartment(t, "A101")
	f.apartment(t, "A102")
	f.tenant(t, "t1@example.com", &a1.ID)
	idle := f.tenant(t, "t2@example.com", nil)
	_, _, err := f.rec.ToggleStatus(f.ctx, idle.ID)
	require.NoError(t, err)

	stats, err := f.rec.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 1, stats.Housed)
	assert.Equal(t, 1, stats.OccupiedUnits)
	assert.Equal(t, 1, stats.VacantUnits)
	assert.Equal(t, 900.0, stats.MonthlyRentRoll)
}
