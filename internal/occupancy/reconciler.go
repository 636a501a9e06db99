// Package occupancy keeps Apartment.IsOccupied/CurrentTenant consistent with
// each tenant's apartment reference across the tenant lifecycle.
package occupancy

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciler performs tenant lifecycle operations. Every write runs in a
// single transaction spanning the user and apartment collections.
type Reconciler struct {
	tx           db.TxManager
	users        db.UserCollection
	apartments   db.ApartmentCollection
	bills        db.BillCollection
	consumptions db.ConsumptionCollection
	dispatcher   notify.Dispatcher
	now          func() time.Time
}

// NewReconciler creates a reconciler over the store bundle. Bills and
// consumption are only read, for tenant history.
func NewReconciler(stores *db.Stores, dispatcher notify.Dispatcher) *Reconciler {
	return &Reconciler{
		tx:           stores.Tx,
		users:        stores.Users,
		apartments:   stores.Apartments,
		bills:        stores.Bills,
		consumptions: stores.Consumptions,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// TenantUpdate carries optional profile and lease changes. A non-nil
// ApartmentID moves the tenant; ClearApartment removes the assignment.
type TenantUpdate struct {
	Name             *string
	Email            *string
	Phone            *string
	IsActive         *bool
	ApartmentID      *primitive.ObjectID
	ClearApartment   bool
	LeaseStartDate   *time.Time
	LeaseEndDate     *time.Time
	MonthlyRent      *float64
	SecurityDeposit  *float64
	EmergencyContact *models.EmergencyContact
	CurrentAddress   *models.Address
	PermanentAddress *models.Address
}

// ReactivationResult reports what happened to the tenant's previous apartment.
type ReactivationResult struct {
	ApartmentRestored bool `json:"apartment_restored"`
	ApartmentCleared  bool `json:"apartment_cleared"`
}

// CreateTenant inserts the tenant and, if it references an apartment,
// occupies that apartment in the same transaction.
func (r *Reconciler) CreateTenant(ctx context.Context, user *models.User) error {
	user.Role = models.RoleTenant
	user.IsActive = true
	if user.TenantInfo == nil {
		user.TenantInfo = &models.TenantInfo{}
	}
	desired := user.TenantInfo.ApartmentID

	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := r.ensureEmailFree(ctx, user.Email, primitive.NilObjectID); err != nil {
			return err
		}
		user.TenantInfo.ApartmentID = nil
		if err := r.users.InsertUser(ctx, user); err != nil {
			return err
		}
		if desired == nil {
			return nil
		}
		return r.moveTenant(ctx, user, desired)
	})
	if err != nil {
		user.TenantInfo.ApartmentID = desired
		return err
	}

	r.dispatch(ctx, notify.WelcomeMessage(user))
	return nil
}

// AssignApartment gives apartmentID to the tenant. It fails with
// ErrConflict if another tenant holds the apartment.
func (r *Reconciler) AssignApartment(ctx context.Context, tenantID, apartmentID primitive.ObjectID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		return r.moveTenant(ctx, user, &apartmentID)
	})
}

// ReassignApartment vacates oldID and occupies newID. A nil newID leaves the
// tenant without an apartment.
func (r *Reconciler) ReassignApartment(ctx context.Context, tenantID primitive.ObjectID, oldID, newID *primitive.ObjectID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if oldID != nil {
			user.TenantInfo.ApartmentID = oldID
		}
		return r.moveTenant(ctx, user, newID)
	})
}

// UpdateTenant applies profile and lease changes, moving the tenant between
// apartments when requested. Deactivating releases the held apartment. An
// apartment change on an inactive tenant only updates the reference.
func (r *Reconciler) UpdateTenant(ctx context.Context, tenantID primitive.ObjectID, upd TenantUpdate) (*models.User, error) {
	var user *models.User
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if upd.Email != nil && *upd.Email != user.Email {
			if err := r.ensureEmailFree(ctx, *upd.Email, user.ID); err != nil {
				return err
			}
			user.Email = *upd.Email
		}
		applyUpdate(user, upd)
		moving := upd.ClearApartment || upd.ApartmentID != nil

		if upd.IsActive != nil && *upd.IsActive != user.IsActive {
			if !*upd.IsActive {
				user.IsActive = false
				if err := r.releaseHeld(ctx, user); err != nil {
					return err
				}
			} else if !moving {
				_, err := r.reactivate(ctx, user)
				return err
			} else {
				user.IsActive = true
			}
		}

		if !user.IsActive {
			// inactive tenants only keep the reference; reactivation occupies it
			if err := r.setReference(ctx, user, upd); err != nil {
				return err
			}
			return r.users.UpdateUser(ctx, user)
		}

		switch {
		case upd.ClearApartment:
			return r.moveTenant(ctx, user, nil)
		case upd.ApartmentID != nil:
			return r.moveTenant(ctx, user, upd.ApartmentID)
		default:
			return r.users.UpdateUser(ctx, user)
		}
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// setReference records a requested apartment change without touching
// occupancy.
func (r *Reconciler) setReference(ctx context.Context, user *models.User, upd TenantUpdate) error {
	switch {
	case upd.ClearApartment:
		user.TenantInfo.ApartmentID = nil
		user.TenantInfo.RoomNumber = ""
	case upd.ApartmentID != nil:
		apt, err := r.apartments.FindApartmentByID(ctx, *upd.ApartmentID)
		if err != nil {
			return err
		}
		user.TenantInfo.ApartmentID = &apt.ID
		user.TenantInfo.RoomNumber = apt.UnitNumber
	}
	return nil
}

func applyUpdate(user *models.User, upd TenantUpdate) {
	ti := user.TenantInfo
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.LeaseStartDate != nil {
		ti.LeaseStartDate = upd.LeaseStartDate
		ti.ArchivedAt = nil
	}
	if upd.LeaseEndDate != nil {
		ti.LeaseEndDate = upd.LeaseEndDate
		ti.ArchivedAt = nil
	}
	if upd.MonthlyRent != nil {
		ti.MonthlyRent = *upd.MonthlyRent
	}
	if upd.SecurityDeposit != nil {
		ti.SecurityDeposit = *upd.SecurityDeposit
	}
	if upd.EmergencyContact != nil {
		ti.EmergencyContact = upd.EmergencyContact
	}
	if upd.CurrentAddress != nil {
		ti.CurrentAddress = upd.CurrentAddress
	}
	if upd.PermanentAddress != nil {
		ti.PermanentAddress = upd.PermanentAddress
	}
}

// ReleaseApartment clears the apartment's occupancy fields unconditionally.
func (r *Reconciler) ReleaseApartment(ctx context.Context, apartmentID primitive.ObjectID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		apt, err := r.apartments.FindApartmentByID(ctx, apartmentID)
		if err != nil {
			return err
		}
		apt.Vacate(r.now())
		return r.apartments.UpdateApartment(ctx, apt)
	})
}

// DeleteTenant soft-deletes the tenant, terminates the lease, records it in
// the lease history and frees the apartment.
func (r *Reconciler) DeleteTenant(ctx context.Context, tenantID primitive.ObjectID) error {
	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		now := r.now()
		user.SnapshotLease(string(models.LeaseTerminated), now)
		user.IsActive = false
		user.IsDeleted = true
		user.DeletedAt = &now
		user.IsHistoricalRecord = true
		user.TenantInfo.LeaseStatus = models.LeaseTerminated
		if err := r.users.UpdateUser(ctx, user); err != nil {
			return err
		}
		return r.releaseHeld(ctx, user)
	})
}

// ToggleStatus deactivates an active tenant, releasing their apartment, or
// reactivates an inactive one. It returns the new active flag.
func (r *Reconciler) ToggleStatus(ctx context.Context, tenantID primitive.ObjectID) (bool, *ReactivationResult, error) {
	var (
		active bool
		result *ReactivationResult
	)
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			result, err = r.reactivate(ctx, user)
			active = true
			return err
		}
		user.IsActive = false
		if err := r.users.UpdateUser(ctx, user); err != nil {
			return err
		}
		return r.releaseHeld(ctx, user)
	})
	if err != nil {
		return false, nil, err
	}
	return active, result, nil
}

// ReactivateTenant re-activates the tenant and re-occupies their previous
// apartment if it is still free. If someone else holds it, or it no longer
// exists, the tenant's reference is cleared instead of failing.
func (r *Reconciler) ReactivateTenant(ctx context.Context, tenantID primitive.ObjectID) (*ReactivationResult, error) {
	var result *ReactivationResult
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		user, err := r.loadTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		result, err = r.reactivate(ctx, user)
		return err
	})
	return result, err
}

func (r *Reconciler) reactivate(ctx context.Context, user *models.User) (*ReactivationResult, error) {
	user.IsActive = true
	result := &ReactivationResult{}
	aptID := user.ApartmentID()
	if aptID == nil {
		return result, r.users.UpdateUser(ctx, user)
	}

	err := r.moveTenant(ctx, user, aptID)
	switch {
	case err == nil:
		result.ApartmentRestored = true
		return result, nil
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrNotFound):
		log.WithFields(log.Fields{
			"tenant_id":    user.ID.Hex(),
			"apartment_id": aptID.Hex(),
		}).WithError(err).Warn("Previous apartment unavailable on reactivation, clearing reference")
		user.TenantInfo.ApartmentID = nil
		user.TenantInfo.RoomNumber = ""
		result.ApartmentCleared = true
		return result, r.users.UpdateUser(ctx, user)
	default:
		return nil, err
	}
}

// moveTenant points the tenant at newID (nil for none), writing the tenant
// first, then vacating the old apartment and occupying the new one.
func (r *Reconciler) moveTenant(ctx context.Context, user *models.User, newID *primitive.ObjectID) error {
	now := r.now()
	old := user.ApartmentID()

	var target *models.Apartment
	if newID != nil {
		apt, err := r.apartments.FindApartmentByID(ctx, *newID)
		if err != nil {
			return err
		}
		if apt.IsOccupied && !apt.HeldBy(user.ID) {
			return apperr.Conflict("apartment %s is already occupied", apt.UnitNumber)
		}
		target = apt
	}

	if user.TenantInfo == nil {
		user.TenantInfo = &models.TenantInfo{}
	}
	user.TenantInfo.ApartmentID = newID
	user.TenantInfo.RoomNumber = ""
	if target != nil {
		user.TenantInfo.RoomNumber = target.UnitNumber
	}
	if err := r.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	if old != nil && (newID == nil || *old != *newID) {
		prev, err := r.apartments.FindApartmentByID(ctx, *old)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return err
		case prev.HeldBy(user.ID):
			prev.Vacate(now)
			if err := r.apartments.UpdateApartment(ctx, prev); err != nil {
				return err
			}
		}
	}

	if target != nil {
		target.Occupy(user.ID, now)
		return r.apartments.UpdateApartment(ctx, target)
	}
	return nil
}

// releaseHeld vacates the tenant's apartment if the tenant currently holds it.
func (r *Reconciler) releaseHeld(ctx context.Context, user *models.User) error {
	aptID := user.ApartmentID()
	if aptID == nil {
		return nil
	}
	apt, err := r.apartments.FindApartmentByID(ctx, *aptID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if apt.CurrentTenant == nil || *apt.CurrentTenant != user.ID {
		return nil
	}
	apt.Vacate(r.now())
	return r.apartments.UpdateApartment(ctx, apt)
}

func (r *Reconciler) loadTenant(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := r.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleTenant || user.IsDeleted {
		return nil, apperr.NotFound("tenant")
	}
	if user.TenantInfo == nil {
		user.TenantInfo = &models.TenantInfo{}
	}
	return user, nil
}

func (r *Reconciler) ensureEmailFree(ctx context.Context, email string, self primitive.ObjectID) error {
	existing, err := r.users.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return apperr.Conflict("email %s is already registered", email)
	}
	return nil
}

func (r *Reconciler) dispatch(ctx context.Context, msg notify.Message) {
	if r.dispatcher == nil {
		return
	}
	if err := r.dispatcher.Dispatch(ctx, msg); err != nil {
		log.WithError(err).WithField("message_id", msg.ID).Warn("Failed to dispatch notification")
	}
}
