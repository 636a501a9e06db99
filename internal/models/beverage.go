package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BeverageCategory string

const (
	CategoryAlcoholic    BeverageCategory = "Alcoholic"
	CategoryNonAlcoholic BeverageCategory = "Non-Alcoholic"
)

// Beverage is a catalog entry. Unavailable beverages cannot be ordered.
type Beverage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price" validate:"gt=0"`
	Category    BeverageCategory   `bson:"category" json:"category" validate:"required,oneof=Alcoholic Non-Alcoholic"`
	IsAvailable bool               `bson:"is_available" json:"is_available"`
	Stock       int                `bson:"stock" json:"stock" validate:"gte=0"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type CartStatus string

const (
	CartActive  CartStatus = "active"
	CartOrdered CartStatus = "ordered"
	CartBilled  CartStatus = "billed"
)

// BeverageCart accumulates a tenant's orders until checkout or the monthly sweep.
type BeverageCart struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID     primitive.ObjectID `bson:"tenant_id" json:"tenant_id"`
	Items        []CartItem         `bson:"items" json:"items"`
	TotalAmount  float64            `bson:"total_amount" json:"total_amount"`
	Status       CartStatus         `bson:"status" json:"status"`
	BillingMonth int                `bson:"billing_month,omitempty" json:"billing_month,omitempty"`
	BillingYear  int                `bson:"billing_year,omitempty" json:"billing_year,omitempty"`
	OrderedAt    *time.Time         `bson:"ordered_at,omitempty" json:"ordered_at,omitempty"`
	BilledAt     *time.Time         `bson:"billed_at,omitempty" json:"billed_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// CartItem is one priced line. UnitPrice is fixed when the line is first added.
type CartItem struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	BeverageID   primitive.ObjectID `bson:"beverage_id" json:"beverage_id"`
	BeverageName string             `bson:"beverage_name" json:"beverage_name"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	UnitPrice    float64            `bson:"unit_price" json:"unit_price"`
	TotalPrice   float64            `bson:"total_price" json:"total_price"`
	AddedAt      time.Time          `bson:"added_at" json:"added_at"`
}

// LineTotal returns quantity × unit price rounded to cents.
func LineTotal(quantity int, unitPrice float64) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// Recalculate refreshes every line total and the cart total.
func (c *BeverageCart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].TotalPrice = LineTotal(c.Items[i].Quantity, c.Items[i].UnitPrice)
		total = total.Add(decimal.NewFromFloat(c.Items[i].TotalPrice))
	}
	c.TotalAmount = total.Round(2).InexactFloat64()
}

// FindItem returns the index of the line with the given id, or -1.
func (c *BeverageCart) FindItem(itemID primitive.ObjectID) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

// FindBeverage returns the index of the line for beverageID, or -1.
func (c *BeverageCart) FindBeverage(beverageID primitive.ObjectID) int {
	for i, it := range c.Items {
		if it.BeverageID == beverageID {
			return i
		}
	}
	return -1
}

type ConsumptionStatus string

const (
	ConsumptionConsumed ConsumptionStatus = "consumed"
	ConsumptionBilled   ConsumptionStatus = "billed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentOnline  PaymentMethod = "online"
	PaymentAccount PaymentMethod = "account"
)

// BeverageConsumption is an immutable purchase line. Only the payment and
// bill linkage fields change after insert.
type BeverageConsumption struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TenantID        primitive.ObjectID  `bson:"tenant_id" json:"tenant_id"`
	BeverageID      primitive.ObjectID  `bson:"beverage_id" json:"beverage_id"`
	BeverageName    string              `bson:"beverage_name" json:"beverage_name"`
	CartID          *primitive.ObjectID `bson:"cart_id,omitempty" json:"cart_id,omitempty"`
	ReservationID   *primitive.ObjectID `bson:"reservation_id,omitempty" json:"reservation_id,omitempty"`
	Quantity        int                 `bson:"quantity" json:"quantity"`
	UnitPrice       float64             `bson:"unit_price" json:"unit_price"`
	TotalAmount     float64             `bson:"total_amount" json:"total_amount"`
	ConsumptionDate time.Time           `bson:"consumption_date" json:"consumption_date"`
	RoomNumber      string              `bson:"room_number,omitempty" json:"room_number,omitempty"`
	ApartmentID     *primitive.ObjectID `bson:"apartment_id,omitempty" json:"apartment_id,omitempty"`
	Status          ConsumptionStatus   `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus       `bson:"payment_status" json:"payment_status"`
	PaymentMethod   PaymentMethod       `bson:"payment_method" json:"payment_method"`
	IncludedInBill  bool                `bson:"included_in_bill" json:"included_in_bill"`
	UtilityBillID   *primitive.ObjectID `bson:"utility_bill_id,omitempty" json:"utility_bill_id,omitempty"`
	BillingPeriod   *Period             `bson:"billing_period,omitempty" json:"billing_period,omitempty"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}
