// Package billing generates utility bills, folds beverage consumption into
// them and drives them through the review and payment workflow.
package billing

import (
	"github.com/shopspring/decimal"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reading is one metered utility input for a bill.
type Reading struct {
	UtilityType     models.UtilityType `json:"utility_type" validate:"required"`
	PreviousReading float64            `json:"previous_reading" validate:"gte=0"`
	CurrentReading  float64            `json:"current_reading" validate:"gte=0"`
	Rate            float64            `json:"rate" validate:"gte=0"`
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// UtilityLines turns readings into priced bill lines. A reading that goes
// backwards fails with ErrInvalidReading.
func UtilityLines(readings []Reading) ([]models.UtilityLine, error) {
	lines := make([]models.UtilityLine, 0, len(readings))
	for _, r := range readings {
		if !models.IsValidUtilityType(r.UtilityType) {
			return nil, apperr.Validation("unknown utility type %q", r.UtilityType)
		}
		consumption := money(r.CurrentReading).Sub(money(r.PreviousReading))
		if consumption.IsNegative() {
			return nil, apperr.InvalidReading("%s reading went from %v to %v", r.UtilityType, r.PreviousReading, r.CurrentReading)
		}
		lines = append(lines, models.UtilityLine{
			UtilityType:     r.UtilityType,
			PreviousReading: r.PreviousReading,
			CurrentReading:  r.CurrentReading,
			Consumption:     consumption.InexactFloat64(),
			Rate:            r.Rate,
			Amount:          round(consumption.Mul(money(r.Rate))),
		})
	}
	return lines, nil
}

// ComputeTotals recomputes subtotal and total from the bill's lines:
// subtotal = utilities + additional charges - discounts + beverages,
// total = subtotal + tax.
func ComputeTotals(bill *models.UtilityBill) {
	subtotal := decimal.Zero
	for _, u := range bill.Utilities {
		subtotal = subtotal.Add(money(u.Amount))
	}
	for _, c := range bill.AdditionalCharges {
		subtotal = subtotal.Add(money(c.Amount))
	}
	for _, d := range bill.Discounts {
		subtotal = subtotal.Sub(money(d.Amount))
	}

	beverages := decimal.Zero
	for _, row := range bill.BeverageConsumption.Items {
		beverages = beverages.Add(money(row.Amount))
	}
	bill.BeverageConsumption.TotalAmount = round(beverages)
	subtotal = subtotal.Add(beverages)

	bill.Subtotal = round(subtotal)
	bill.TotalAmount = round(subtotal.Add(money(bill.Tax)))
}

// fold snapshots consumption records onto the bill.
func fold(bill *models.UtilityBill, records []models.BeverageConsumption) {
	for _, r := range records {
		bill.BeverageConsumption.Items = append(bill.BeverageConsumption.Items, models.BeverageBillRow{
			BeverageConsumptionID: r.ID,
			BeverageName:          r.BeverageName,
			Quantity:              r.Quantity,
			UnitPrice:             r.UnitPrice,
			Amount:                r.TotalAmount,
			ConsumptionDate:       r.ConsumptionDate,
		})
	}
}

func ids(records []models.BeverageConsumption) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
