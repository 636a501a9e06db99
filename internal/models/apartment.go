package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ApartmentType string

const (
	Apartment1BHK      ApartmentType = "1BHK"
	Apartment2BHK      ApartmentType = "2BHK"
	Apartment3BHK      ApartmentType = "3BHK"
	ApartmentPenthouse ApartmentType = "Penthouse"
)

// Apartment is a rentable unit. IsOccupied is true exactly when CurrentTenant is set.
type Apartment struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UnitNumber      string              `bson:"unit_number" json:"unit_number" validate:"required"`
	Building        string              `bson:"building" json:"building" validate:"required"`
	Floor           int                 `bson:"floor" json:"floor" validate:"gte=0"`
	Type            ApartmentType       `bson:"type" json:"type" validate:"required,oneof=1BHK 2BHK 3BHK Penthouse"`
	Bedrooms        int                 `bson:"bedrooms" json:"bedrooms" validate:"gte=0"`
	Bathrooms       int                 `bson:"bathrooms" json:"bathrooms" validate:"gte=0"`
	Area            float64             `bson:"area" json:"area" validate:"gte=0"`
	Rent            float64             `bson:"rent" json:"rent" validate:"gte=0"`
	Deposit         float64             `bson:"deposit" json:"deposit" validate:"gte=0"`
	Amenities       []string            `bson:"amenities,omitempty" json:"amenities,omitempty"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	IsOccupied      bool                `bson:"is_occupied" json:"is_occupied"`
	CurrentTenant   *primitive.ObjectID `bson:"current_tenant,omitempty" json:"current_tenant,omitempty"`
	OccupiedDate    *time.Time          `bson:"occupied_date,omitempty" json:"occupied_date,omitempty"`
	LastVacatedDate *time.Time          `bson:"last_vacated_date,omitempty" json:"last_vacated_date,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// Occupy marks the apartment as held by tenantID.
func (a *Apartment) Occupy(tenantID primitive.ObjectID, now time.Time) {
	a.IsOccupied = true
	a.CurrentTenant = &tenantID
	a.OccupiedDate = &now
}

// Vacate clears occupancy and records when the unit became free.
func (a *Apartment) Vacate(now time.Time) {
	a.IsOccupied = false
	a.CurrentTenant = nil
	a.OccupiedDate = nil
	a.LastVacatedDate = &now
}

// HeldBy reports whether the apartment is free or already held by tenantID.
func (a *Apartment) HeldBy(tenantID primitive.ObjectID) bool {
	return a.CurrentTenant == nil || *a.CurrentTenant == tenantID
}
