package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest is a worker's absence request.
type LeaveRequest struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WorkerID   primitive.ObjectID  `bson:"worker_id" json:"worker_id"`
	LeaveType  string              `bson:"leave_type" json:"leave_type"`
	StartDate  time.Time           `bson:"start_date" json:"start_date"`
	EndDate    time.Time           `bson:"end_date" json:"end_date"`
	TotalDays  int                 `bson:"total_days" json:"total_days"`
	Reason     string              `bson:"reason" json:"reason"`
	Status     LeaveStatus         `bson:"status" json:"status"`
	ReviewedBy *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	AdminNotes string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsValidLeaveType checks a leave type
func IsValidLeaveType(t string) bool {
	switch t {
	case "Sick", "Vacation", "Personal", "Emergency", "Maternity/Paternity", "Other":
		return true
	}
	return false
}

// LeaveDays counts calendar days inclusively.
func LeaveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// RooftopReservation books the shared rooftop for a date and time slot.
type RooftopReservation struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID        primitive.ObjectID  `bson:"tenant_id" json:"tenant_id"`
	RoomNumber      string              `bson:"room_number,omitempty" json:"room_number,omitempty"`
	Phone           string              `bson:"phone,omitempty" json:"phone,omitempty"`
	ReservationDate time.Time           `bson:"reservation_date" json:"reservation_date"`
	TimeSlot        string              `bson:"time_slot" json:"time_slot"`
	NumberOfGuests  int                 `bson:"number_of_guests" json:"number_of_guests"`
	Purpose         string              `bson:"purpose,omitempty" json:"purpose,omitempty"`
	SpecialRequests string              `bson:"special_requests,omitempty" json:"special_requests,omitempty"`
	Status          ReservationStatus   `bson:"status" json:"status"`
	ReviewedBy      *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	AdminNotes      string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsValidTimeSlot checks a rooftop slot
func IsValidTimeSlot(s string) bool {
	switch s {
	case "morning", "afternoon", "evening", "night", "full-day":
		return true
	}
	return false
}
