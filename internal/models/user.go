package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleTenant Role = "tenant"
	RoleWorker Role = "worker"
)

// LeaseStatus is derived from the lease window on every save.
type LeaseStatus string

const (
	LeaseUpcoming   LeaseStatus = "upcoming"
	LeaseActive     LeaseStatus = "active"
	LeaseExpired    LeaseStatus = "expired"
	LeaseTerminated LeaseStatus = "terminated"
)

// User represents an admin, tenant or worker account
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name               string             `bson:"name" json:"name"`
	Email              string             `bson:"email" json:"email"`
	PasswordHash       string             `bson:"password_hash" json:"-"`
	Role               Role               `bson:"role" json:"role"`
	Phone              string             `bson:"phone,omitempty" json:"phone,omitempty"`
	TenantInfo         *TenantInfo        `bson:"tenant_info,omitempty" json:"tenant_info,omitempty"`
	WorkerInfo         *WorkerInfo        `bson:"worker_info,omitempty" json:"worker_info,omitempty"`
	IsActive           bool               `bson:"is_active" json:"is_active"`
	IsHistoricalRecord bool               `bson:"is_historical_record" json:"is_historical_record"`
	IsDeleted          bool               `bson:"is_deleted" json:"is_deleted"`
	DeletedAt          *time.Time         `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	LastLogin          *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// TenantInfo is the lease data embedded in a tenant account.
type TenantInfo struct {
	ApartmentID       *primitive.ObjectID `bson:"apartment_id,omitempty" json:"apartment_id,omitempty"`
	RoomNumber        string              `bson:"room_number,omitempty" json:"room_number,omitempty"`
	LeaseStartDate    *time.Time          `bson:"lease_start_date,omitempty" json:"lease_start_date,omitempty"`
	LeaseEndDate      *time.Time          `bson:"lease_end_date,omitempty" json:"lease_end_date,omitempty"`
	LeaseStatus       LeaseStatus         `bson:"lease_status,omitempty" json:"lease_status,omitempty"`
	MonthlyRent       float64             `bson:"monthly_rent" json:"monthly_rent"`
	SecurityDeposit   float64             `bson:"security_deposit" json:"security_deposit"`
	LeaseHistory      []LeaseRecord       `bson:"lease_history,omitempty" json:"lease_history,omitempty"`
	CurrentAddress    *Address            `bson:"current_address,omitempty" json:"current_address,omitempty"`
	PermanentAddress  *Address            `bson:"permanent_address,omitempty" json:"permanent_address,omitempty"`
	EmergencyContact  *EmergencyContact   `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`
	TotalStayDuration StayDuration        `bson:"total_stay_duration" json:"total_stay_duration"`
	// ArchivedAt is set when an admin archives the lease early; the lease
	// stays expired until new lease dates are set.
	ArchivedAt *time.Time `bson:"archived_at,omitempty" json:"archived_at,omitempty"`
}

// LeaseRecord is a snapshot of a past lease.
type LeaseRecord struct {
	ApartmentID     *primitive.ObjectID `bson:"apartment_id,omitempty" json:"apartment_id,omitempty"`
	RoomNumber      string              `bson:"room_number,omitempty" json:"room_number,omitempty"`
	LeaseStartDate  *time.Time          `bson:"lease_start_date,omitempty" json:"lease_start_date,omitempty"`
	LeaseEndDate    *time.Time          `bson:"lease_end_date,omitempty" json:"lease_end_date,omitempty"`
	MonthlyRent     float64             `bson:"monthly_rent" json:"monthly_rent"`
	SecurityDeposit float64             `bson:"security_deposit" json:"security_deposit"`
	StayDuration    StayDuration        `bson:"stay_duration" json:"stay_duration"`
	Reason          string              `bson:"reason" json:"reason"`
	RecordedAt      time.Time           `bson:"recorded_at" json:"recorded_at"`
}

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zip_code"`
	Country string `bson:"country" json:"country"`
}

type EmergencyContact struct {
	Name         string `bson:"name" json:"name"`
	Phone        string `bson:"phone" json:"phone"`
	Relationship string `bson:"relationship" json:"relationship"`
}

// StayDuration is derived from the lease window.
type StayDuration struct {
	Days   int `bson:"days" json:"days"`
	Months int `bson:"months" json:"months"`
	Years  int `bson:"years" json:"years"`
}

// WorkerInfo holds staff details for worker accounts.
type WorkerInfo struct {
	Specialization []string `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Shift          string   `bson:"shift,omitempty" json:"shift,omitempty"`
	HourlyRate     float64  `bson:"hourly_rate,omitempty" json:"hourly_rate,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTenant, RoleWorker:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleTenant:
		return action == "order_beverages" || action == "view_own_bills" ||
			action == "create_maintenance" || action == "reserve_rooftop"
	case RoleWorker:
		return action == "update_maintenance" || action == "request_leave"
	default:
		return false
	}
}

// ApartmentID returns the tenant's apartment reference, if any.
func (u *User) ApartmentID() *primitive.ObjectID {
	if u.TenantInfo == nil {
		return nil
	}
	return u.TenantInfo.ApartmentID
}

// RefreshLease recomputes lease status and stay duration from the clock.
// Stores call it on every insert and update. A terminated lease stays terminated.
func (u *User) RefreshLease(now time.Time) {
	ti := u.TenantInfo
	if u.Role != RoleTenant || ti == nil {
		return
	}
	if ti.LeaseStartDate != nil && ti.LeaseEndDate != nil {
		ti.TotalStayDuration = CalculateStayDuration(*ti.LeaseStartDate, *ti.LeaseEndDate)
	}
	if ti.LeaseStatus == LeaseTerminated {
		return
	}
	switch {
	case ti.ArchivedAt != nil:
		ti.LeaseStatus = LeaseExpired
		u.IsHistoricalRecord = true
	case ti.LeaseStartDate != nil && now.Before(*ti.LeaseStartDate):
		ti.LeaseStatus = LeaseUpcoming
	case ti.LeaseEndDate != nil && now.After(*ti.LeaseEndDate):
		ti.LeaseStatus = LeaseExpired
		u.IsHistoricalRecord = true
	case ti.LeaseStartDate != nil:
		ti.LeaseStatus = LeaseActive
	}
}

// CalculateStayDuration counts started days, 30-day months and whole years.
func CalculateStayDuration(start, end time.Time) StayDuration {
	if !end.After(start) {
		return StayDuration{}
	}
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	months := int(math.Ceil(float64(days) / 30))
	return StayDuration{Days: days, Months: months, Years: months / 12}
}

// SnapshotLease appends the current lease to the tenant's history. The
// recorded stay runs from the lease start to the lease end, or to now when
// the lease has no end date.
func (u *User) SnapshotLease(reason string, now time.Time) {
	ti := u.TenantInfo
	if ti == nil {
		return
	}
	var stay StayDuration
	if ti.LeaseStartDate != nil {
		end := now
		if ti.LeaseEndDate != nil {
			end = *ti.LeaseEndDate
		}
		stay = CalculateStayDuration(*ti.LeaseStartDate, end)
	}
	ti.LeaseHistory = append(ti.LeaseHistory, LeaseRecord{
		ApartmentID:     ti.ApartmentID,
		RoomNumber:      ti.RoomNumber,
		LeaseStartDate:  ti.LeaseStartDate,
		LeaseEndDate:    ti.LeaseEndDate,
		MonthlyRent:     ti.MonthlyRent,
		SecurityDeposit: ti.SecurityDeposit,
		StayDuration:    stay,
		Reason:          reason,
		RecordedAt:      now,
	})
}
