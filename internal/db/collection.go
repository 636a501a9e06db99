package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateKey is returned when an insert or update violates a unique index.
var ErrDuplicateKey = fmt.Errorf("%w: duplicate key", apperr.ErrConflict)

// TxManager runs fn inside a multi-document transaction. Calls made with the
// context passed to fn join the transaction; nested RunInTx calls join the
// outer one. Any error returned by fn rolls back every write.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserFilter selects users. Soft-deleted users are excluded unless
// IncludeDeleted is set.
type UserFilter struct {
	Role           models.Role
	IsActive       *bool
	IncludeDeleted bool
	Search         string
	ApartmentID    *primitive.ObjectID
	LeaseEndFrom   *time.Time
	LeaseEndTo     *time.Time
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
}

type ApartmentFilter struct {
	IsOccupied *bool
	Building   string
	Type       models.ApartmentType
}

// ApartmentCollection defines the interface for apartment inventory operations
type ApartmentCollection interface {
	InsertApartment(ctx context.Context, apartment *models.Apartment) error
	FindApartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Apartment, error)
	FindApartments(ctx context.Context, filter ApartmentFilter) ([]models.Apartment, error)
	UpdateApartment(ctx context.Context, apartment *models.Apartment) error
	DeleteApartment(ctx context.Context, id primitive.ObjectID) error
}

// BeverageCollection defines the interface for the beverage catalog
type BeverageCollection interface {
	InsertBeverage(ctx context.Context, beverage *models.Beverage) error
	FindBeverageByID(ctx context.Context, id primitive.ObjectID) (*models.Beverage, error)
	FindBeverages(ctx context.Context, availableOnly bool) ([]models.Beverage, error)
	UpdateBeverage(ctx context.Context, beverage *models.Beverage) error
	DeleteBeverage(ctx context.Context, id primitive.ObjectID) error
}

type CartFilter struct {
	TenantID *primitive.ObjectID
	Status   models.CartStatus
}

// CartCollection defines the interface for beverage carts. At most one cart
// per tenant may be active; inserting a second returns ErrDuplicateKey.
type CartCollection interface {
	InsertCart(ctx context.Context, cart *models.BeverageCart) error
	FindActiveCart(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, error)
	FindCarts(ctx context.Context, filter CartFilter) ([]models.BeverageCart, error)
	UpdateCart(ctx context.Context, cart *models.BeverageCart) error
}

// ConsumptionFilter selects consumption records. From/To form a half-open
// range on consumption_date.
type ConsumptionFilter struct {
	TenantID       *primitive.ObjectID
	BillID         *primitive.ObjectID
	PaymentStatus  models.PaymentStatus
	IncludedInBill *bool
	From           *time.Time
	To             *time.Time
}

// ConsumptionCollection defines the interface for the consumption ledger
type ConsumptionCollection interface {
	InsertConsumptions(ctx context.Context, records []models.BeverageConsumption) error
	FindConsumptions(ctx context.Context, filter ConsumptionFilter) ([]models.BeverageConsumption, error)
	// MarkIncludedInBill links unbilled records to billID. It fails with
	// ErrConflict unless every id was still unbilled.
	MarkIncludedInBill(ctx context.Context, ids []primitive.ObjectID, billID primitive.ObjectID, period models.Period) error
	// ReleaseFromBill unlinks every record that references billID.
	ReleaseFromBill(ctx context.Context, billID primitive.ObjectID) (int64, error)
	// MarkPaidByBill sets payment_status=paid on every unpaid record linked to billID.
	MarkPaidByBill(ctx context.Context, billID primitive.ObjectID) (int64, error)
}

type BillFilter struct {
	TenantID        *primitive.ObjectID
	Statuses        []models.BillStatus
	DueBefore       *time.Time
	PeriodStartFrom *time.Time
	PeriodStartTo   *time.Time
	// PeriodEndAfter keeps bills whose period ends after the given time.
	// Combined with PeriodStartTo it selects bills overlapping a period.
	PeriodEndAfter *time.Time
}

// BillCollection defines the interface for utility bills
type BillCollection interface {
	InsertBill(ctx context.Context, bill *models.UtilityBill) error
	FindBillByID(ctx context.Context, id primitive.ObjectID) (*models.UtilityBill, error)
	FindBills(ctx context.Context, filter BillFilter) ([]models.UtilityBill, error)
	BillNumberExists(ctx context.Context, number string) (bool, error)
	// UpdateBill replaces the bill only while its stored status is still
	// expected; otherwise it returns ErrConflict.
	UpdateBill(ctx context.Context, bill *models.UtilityBill, expected models.BillStatus) error
	DeleteBill(ctx context.Context, id primitive.ObjectID) error
}

// CounterCollection hands out atomic per-key sequence values.
type CounterCollection interface {
	NextSequence(ctx context.Context, key string) (int64, error)
}

type MaintenanceFilter struct {
	TenantID   *primitive.ObjectID
	AssignedTo *primitive.ObjectID
	Status     models.MaintenanceStatus
	Priority   string
}

// MaintenanceCollection defines the interface for maintenance tickets
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, req *models.MaintenanceRequest) error
	FindMaintenanceByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error)
	FindMaintenance(ctx context.Context, filter MaintenanceFilter) ([]models.MaintenanceRequest, error)
	UpdateMaintenance(ctx context.Context, req *models.MaintenanceRequest) error
}

type LeaveFilter struct {
	WorkerID *primitive.ObjectID
	Status   models.LeaveStatus
}

// LeaveCollection defines the interface for worker leave requests
type LeaveCollection interface {
	InsertLeave(ctx context.Context, req *models.LeaveRequest) error
	FindLeaveByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error)
	FindLeaves(ctx context.Context, filter LeaveFilter) ([]models.LeaveRequest, error)
	UpdateLeave(ctx context.Context, req *models.LeaveRequest) error
}

type ReservationFilter struct {
	TenantID *primitive.ObjectID
	Status   models.ReservationStatus
	Date     *time.Time
	TimeSlot string
}

// ReservationCollection defines the interface for rooftop reservations
type ReservationCollection interface {
	InsertReservation(ctx context.Context, res *models.RooftopReservation) error
	FindReservationByID(ctx context.Context, id primitive.ObjectID) (*models.RooftopReservation, error)
	FindReservations(ctx context.Context, filter ReservationFilter) ([]models.RooftopReservation, error)
	UpdateReservation(ctx context.Context, res *models.RooftopReservation) error
}

// Stores bundles every collection behind one value for wiring.
type Stores struct {
	Tx           TxManager
	Users        UserCollection
	Apartments   ApartmentCollection
	Beverages    BeverageCollection
	Carts        CartCollection
	Consumptions ConsumptionCollection
	Bills        BillCollection
	Counters     CounterCollection
	Maintenance  MaintenanceCollection
	Leaves       LeaveCollection
	Reservations ReservationCollection
}

// DayRange returns the [00:00, next 00:00) range for the day containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
