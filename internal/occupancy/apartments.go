package occupancy

import (
	"context"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateApartment adds a vacant unit to the inventory.
func (r *Reconciler) CreateApartment(ctx context.Context, apt *models.Apartment) error {
	apt.IsOccupied = false
	apt.CurrentTenant = nil
	apt.OccupiedDate = nil
	return r.apartments.InsertApartment(ctx, apt)
}

// UpdateApartment replaces the descriptive fields of a unit. Occupancy is
// owned by the tenant lifecycle and is carried over from the stored document.
func (r *Reconciler) UpdateApartment(ctx context.Context, apt *models.Apartment) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		stored, err := r.apartments.FindApartmentByID(ctx, apt.ID)
		if err != nil {
			return err
		}
		apt.IsOccupied = stored.IsOccupied
		apt.CurrentTenant = stored.CurrentTenant
		apt.OccupiedDate = stored.OccupiedDate
		apt.LastVacatedDate = stored.LastVacatedDate
		apt.CreatedAt = stored.CreatedAt
		return r.apartments.UpdateApartment(ctx, apt)
	})
}

// DeleteApartment removes a vacant unit.
func (r *Reconciler) DeleteApartment(ctx context.Context, id primitive.ObjectID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		apt, err := r.apartments.FindApartmentByID(ctx, id)
		if err != nil {
			return err
		}
		if apt.IsOccupied {
			return apperr.Conflict("apartment %s is occupied", apt.UnitNumber)
		}
		return r.apartments.DeleteApartment(ctx, id)
	})
}

// TenantStats summarises the tenant population.
type TenantStats struct {
	Total           int                        `json:"total"`
	Active          int                        `json:"active"`
	Inactive        int                        `json:"inactive"`
	Housed          int                        `json:"housed"`
	ByLeaseStatus   map[models.LeaseStatus]int `json:"by_lease_status"`
	OccupiedUnits   int                        `json:"occupied_units"`
	VacantUnits     int                        `json:"vacant_units"`
	MonthlyRentRoll float64                    `json:"monthly_rent_roll"`
}

func (r *Reconciler) Stats(ctx context.Context) (*TenantStats, error) {
	tenants, err := r.users.FindUsers(ctx, db.UserFilter{Role: models.RoleTenant})
	if err != nil {
		return nil, err
	}
	apartments, err := r.apartments.FindApartments(ctx, db.ApartmentFilter{})
	if err != nil {
		return nil, err
	}

	stats := &TenantStats{Total: len(tenants), ByLeaseStatus: map[models.LeaseStatus]int{}}
	for i := range tenants {
		t := &tenants[i]
		if t.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if t.ApartmentID() != nil {
			stats.Housed++
		}
		if t.TenantInfo != nil && t.TenantInfo.LeaseStatus != "" {
			stats.ByLeaseStatus[t.TenantInfo.LeaseStatus]++
		}
	}
	for _, a := range apartments {
		if a.IsOccupied {
			stats.OccupiedUnits++
			stats.MonthlyRentRoll += a.Rent
		} else {
			stats.VacantUnits++
		}
	}
	return stats, nil
}
