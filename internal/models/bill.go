package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BillStatus string

const (
	BillDraft       BillStatus = "draft"
	BillUnderReview BillStatus = "under_review"
	BillApproved    BillStatus = "approved"
	BillSent        BillStatus = "sent"
	BillPaid        BillStatus = "paid"
	BillOverdue     BillStatus = "overdue"
	BillCancelled   BillStatus = "cancelled"
)

// OpenBillStatuses lists every status except cancelled. A tenant holds at
// most one bill in these statuses per billing period.
var OpenBillStatuses = []BillStatus{BillDraft, BillUnderReview, BillApproved, BillSent, BillPaid, BillOverdue}

var billTransitions = map[BillStatus][]BillStatus{
	BillDraft:       {BillUnderReview, BillCancelled, BillOverdue},
	BillUnderReview: {BillApproved, BillDraft, BillCancelled, BillOverdue},
	BillApproved:    {BillSent, BillDraft, BillCancelled, BillOverdue},
	BillSent:        {BillPaid, BillOverdue, BillCancelled},
	BillOverdue:     {BillPaid, BillCancelled},
}

// CanTransitionTo reports whether the status machine allows s -> next.
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BillStatus) IsTerminal() bool {
	return s == BillPaid || s == BillCancelled
}

// Editable reports whether line items may still change.
func (s BillStatus) Editable() bool {
	return s == BillDraft || s == BillUnderReview
}

type UtilityType string

const (
	UtilityElectricity  UtilityType = "electricity"
	UtilityWater        UtilityType = "water"
	UtilityGas          UtilityType = "gas"
	UtilityInternet     UtilityType = "internet"
	UtilityMaintenance  UtilityType = "maintenance"
	UtilityFloorHeating UtilityType = "floor_heating"
	UtilityCarCharging  UtilityType = "car_charging"
)

// IsValidUtilityType checks if a utility type is known
func IsValidUtilityType(t UtilityType) bool {
	switch t {
	case UtilityElectricity, UtilityWater, UtilityGas, UtilityInternet,
		UtilityMaintenance, UtilityFloorHeating, UtilityCarCharging:
		return true
	default:
		return false
	}
}

// Period is a half-open [StartDate, EndDate) billing window.
type Period struct {
	StartDate time.Time `bson:"start_date" json:"start_date"`
	EndDate   time.Time `bson:"end_date" json:"end_date"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && t.Before(p.EndDate)
}

// MonthPeriod returns the calendar month containing t.
func MonthPeriod(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Period{StartDate: start, EndDate: start.AddDate(0, 1, 0)}
}

type UtilityLine struct {
	UtilityType     UtilityType `bson:"utility_type" json:"utility_type"`
	PreviousReading float64     `bson:"previous_reading" json:"previous_reading"`
	CurrentReading  float64     `bson:"current_reading" json:"current_reading"`
	Consumption     float64     `bson:"consumption" json:"consumption"`
	Rate            float64     `bson:"rate" json:"rate"`
	Amount          float64     `bson:"amount" json:"amount"`
}

type Adjustment struct {
	Description string  `bson:"description" json:"description"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// BeverageSummary is the folded-in consumption snapshot on a bill.
type BeverageSummary struct {
	TotalAmount float64           `bson:"total_amount" json:"total_amount"`
	Items       []BeverageBillRow `bson:"items" json:"items"`
}

type BeverageBillRow struct {
	BeverageConsumptionID primitive.ObjectID `bson:"beverage_consumption_id" json:"beverage_consumption_id"`
	BeverageName          string             `bson:"beverage_name" json:"beverage_name"`
	Quantity              int                `bson:"quantity" json:"quantity"`
	UnitPrice             float64            `bson:"unit_price" json:"unit_price"`
	Amount                float64            `bson:"amount" json:"amount"`
	ConsumptionDate       time.Time          `bson:"consumption_date" json:"consumption_date"`
}

// UtilityBill is one tenant's bill for one billing period.
type UtilityBill struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID            primitive.ObjectID  `bson:"tenant_id" json:"tenant_id"`
	ApartmentID         primitive.ObjectID  `bson:"apartment_id" json:"apartment_id"`
	BillNumber          string              `bson:"bill_number" json:"bill_number"`
	BillingPeriod       Period              `bson:"billing_period" json:"billing_period"`
	Utilities           []UtilityLine       `bson:"utilities" json:"utilities"`
	AdditionalCharges   []Adjustment        `bson:"additional_charges" json:"additional_charges"`
	Discounts           []Adjustment        `bson:"discounts" json:"discounts"`
	BeverageConsumption BeverageSummary     `bson:"beverage_consumption" json:"beverage_consumption"`
	Subtotal            float64             `bson:"subtotal" json:"subtotal"`
	Tax                 float64             `bson:"tax" json:"tax"`
	TotalAmount         float64             `bson:"total_amount" json:"total_amount"`
	Status              BillStatus          `bson:"status" json:"status"`
	DueDate             time.Time           `bson:"due_date" json:"due_date"`
	GeneratedBy         *primitive.ObjectID `bson:"generated_by,omitempty" json:"generated_by,omitempty"`
	ReviewedBy          *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ApprovedBy          *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	GeneratedAt         *time.Time          `bson:"generated_at,omitempty" json:"generated_at,omitempty"`
	ReviewedAt          *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	ApprovedAt          *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	SentAt              *time.Time          `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	PaidAt              *time.Time          `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	PaymentMethod       PaymentMethod       `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	AdminNotes          string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	ReviewNotes         string              `bson:"review_notes,omitempty" json:"review_notes,omitempty"`
	EmailSent           bool                `bson:"email_sent" json:"email_sent"`
	EmailSentAt         *time.Time          `bson:"email_sent_at,omitempty" json:"email_sent_at,omitempty"`
	RemindersSent       int                 `bson:"reminders_sent" json:"reminders_sent"`
	LastReminderAt      *time.Time          `bson:"last_reminder_at,omitempty" json:"last_reminder_at,omitempty"`
	CreatedAt           time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time           `bson:"updated_at" json:"updated_at"`
}

// ConsumptionIDs lists the consumption records folded into the bill.
func (b *UtilityBill) ConsumptionIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(b.BeverageConsumption.Items))
	for _, row := range b.BeverageConsumption.Items {
		ids = append(ids, row.BeverageConsumptionID)
	}
	return ids
}

// BillStats aggregates bill counts and amounts by status.
type BillStats struct {
	TotalBills     int                `json:"total_bills"`
	TotalAmount    float64            `json:"total_amount"`
	PaidAmount     float64            `json:"paid_amount"`
	PendingAmount  float64            `json:"pending_amount"`
	OverdueAmount  float64            `json:"overdue_amount"`
	CountsByStatus map[BillStatus]int `json:"counts_by_status"`
}
