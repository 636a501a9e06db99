package occupancy

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TenantHistory is a tenant together with everything billed to them.
type TenantHistory struct {
	Tenant      *models.User                 `json:"tenant"`
	Bills       []models.UtilityBill         `json:"bills"`
	Consumption []models.BeverageConsumption `json:"consumption"`
	Summary     HistorySummary               `json:"summary"`
}

// HistorySummary totals a tenant's history. TotalPayments only counts paid
// bills.
type HistorySummary struct {
	TotalBills               int     `json:"total_bills"`
	TotalPayments            float64 `json:"total_payments"`
	TotalBeverageOrders      int     `json:"total_beverage_orders"`
	TotalBeverageConsumption float64 `json:"total_beverage_consumption"`
	LeaseRecords             int     `json:"lease_records"`
}

// History loads a tenant's bills and beverage consumption. Deleted tenants
// are included.
func (r *Reconciler) History(ctx context.Context, tenantID primitive.ObjectID) (*TenantHistory, error) {
	user, err := r.users.FindUserByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleTenant {
		return nil, apperr.NotFound("tenant")
	}

	bills, err := r.bills.FindBills(ctx, db.BillFilter{TenantID: &tenantID})
	if err != nil {
		return nil, err
	}
	consumption, err := r.consumptions.FindConsumptions(ctx, db.ConsumptionFilter{TenantID: &tenantID})
	if err != nil {
		return nil, err
	}

	paid, beverages := decimal.Zero, decimal.Zero
	for _, b := range bills {
		if b.Status == models.BillPaid {
			paid = paid.Add(decimal.NewFromFloat(b.TotalAmount))
		}
	}
	for _, c := range consumption {
		beverages = beverages.Add(decimal.NewFromFloat(c.TotalAmount))
	}

	h := &TenantHistory{
		Tenant:      user,
		Bills:       bills,
		Consumption: consumption,
		Summary: HistorySummary{
			TotalBills:               len(bills),
			TotalPayments:            paid.Round(2).InexactFloat64(),
			TotalBeverageOrders:      len(consumption),
			TotalBeverageConsumption: beverages.Round(2).InexactFloat64(),
		},
	}
	if user.TenantInfo != nil {
		h.Summary.LeaseRecords = len(user.TenantInfo.LeaseHistory)
	}
	return h, nil
}

// HistoricalTenants lists tenants whose lease has expired or been
// terminated, most recent lease end first.
func (r *Reconciler) HistoricalTenants(ctx context.Context) ([]models.User, error) {
	users, err := r.users.FindUsers(ctx, db.UserFilter{Role: models.RoleTenant, IncludeDeleted: true})
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.TenantInfo == nil {
			continue
		}
		if s := u.TenantInfo.LeaseStatus; s == models.LeaseExpired || s == models.LeaseTerminated {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TenantInfo.LeaseEndDate, out[j].TenantInfo.LeaseEndDate
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	return out, nil
}

// Archive ends the tenant's lease now: the lease goes to the history with
// reason, the status becomes expired and the apartment is released. The
// tenant stays active and can be given a new lease.
func (r *Reconciler) Archive(ctx context.Context, tenantID primitive.ObjectID, reason string) (*models.User, error) {
	if reason == "" {
		reason = "archived"
	}
	var user *models.User
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if user.TenantInfo.ArchivedAt != nil {
			return apperr.Conflict("tenant %s is already archived", user.Email)
		}
		now := r.now()
		user.SnapshotLease(reason, now)
		user.TenantInfo.ArchivedAt = &now
		user.TenantInfo.LeaseStatus = models.LeaseExpired
		user.IsHistoricalRecord = true
		if err := r.releaseHeld(ctx, user); err != nil {
			return err
		}
		user.TenantInfo.ApartmentID = nil
		user.TenantInfo.RoomNumber = ""
		return r.users.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshLeaseStatuses recomputes every tenant's lease status and persists
// the ones that changed since their last write. It returns how many were
// updated. A failing tenant is logged and skipped.
func (r *Reconciler) RefreshLeaseStatuses(ctx context.Context) (int, error) {
	users, err := r.users.FindUsers(ctx, db.UserFilter{Role: models.RoleTenant})
	if err != nil {
		return 0, err
	}
	now := r.now()
	updated := 0
	for i := range users {
		u := &users[i]
		if u.TenantInfo == nil {
			continue
		}
		status, historical := u.TenantInfo.LeaseStatus, u.IsHistoricalRecord
		u.RefreshLease(now)
		if u.TenantInfo.LeaseStatus == status && u.IsHistoricalRecord == historical {
			continue
		}
		if err := r.users.UpdateUser(ctx, u); err != nil {
			log.WithError(err).WithField("tenant_id", u.ID.Hex()).Warn("Failed to refresh lease status")
			continue
		}
		updated++
	}
	return updated, nil
}
