package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceAssigned   MaintenanceStatus = "Assigned"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
	MaintenanceCancelled  MaintenanceStatus = "Cancelled"
)

// MaintenanceRequest represents a tenant's repair ticket.
type MaintenanceRequest struct {
	ID                   primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID             primitive.ObjectID  `json:"tenant_id" bson:"tenant_id"`
	ApartmentID          primitive.ObjectID  `json:"apartment_id" bson:"apartment_id"`
	Title                string              `json:"title" bson:"title"`
	Description          string              `json:"description" bson:"description"`
	Category             string              `json:"category" bson:"category"` // "Plumbing", "Electrical", "HVAC", "Appliances", "Cleaning", "Painting", "Carpentry", "Other"
	Priority             string              `json:"priority" bson:"priority"` // "Low", "Medium", "High", "Emergency"
	Status               MaintenanceStatus   `json:"status" bson:"status"`
	AssignedTo           *primitive.ObjectID `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	AssignedDate         *time.Time          `json:"assigned_date,omitempty" bson:"assigned_date,omitempty"`
	StartedDate          *time.Time          `json:"started_date,omitempty" bson:"started_date,omitempty"`
	CompletedDate        *time.Time          `json:"completed_date,omitempty" bson:"completed_date,omitempty"`
	ActualCompletionTime string              `json:"actual_completion_time,omitempty" bson:"actual_completion_time,omitempty"`
	WorkNotes            string              `json:"work_notes,omitempty" bson:"work_notes,omitempty"`
	AdminNotes           string              `json:"admin_notes,omitempty" bson:"admin_notes,omitempty"`
	Feedback             *TenantFeedback     `json:"tenant_feedback,omitempty" bson:"tenant_feedback,omitempty"`
	CreatedAt            time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" bson:"updated_at"`
}

type TenantFeedback struct {
	Rating      int       `json:"rating" bson:"rating"`
	Comment     string    `json:"comment,omitempty" bson:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at" bson:"submitted_at"`
}

// IsValidMaintenanceCategory checks a ticket category
func IsValidMaintenanceCategory(c string) bool {
	switch c {
	case "Plumbing", "Electrical", "HVAC", "Appliances", "Cleaning", "Painting", "Carpentry", "Other":
		return true
	}
	return false
}

// IsValidMaintenancePriority checks a ticket priority
func IsValidMaintenancePriority(p string) bool {
	switch p {
	case "Low", "Medium", "High", "Emergency":
		return true
	}
	return false
}
