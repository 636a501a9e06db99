package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBillStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to BillStatus
		expected bool
	}{
		{BillDraft, BillUnderReview, true},
		{BillDraft, BillApproved, false},
		{BillUnderReview, BillApproved, true},
		{BillUnderReview, BillDraft, true},
		{BillApproved, BillSent, true},
		{BillApproved, BillDraft, true},
		{BillSent, BillPaid, true},
		{BillSent, BillOverdue, true},
		{BillOverdue, BillPaid, true},
		{BillDraft, BillCancelled, true},
		{BillPaid, BillDraft, false},
		{BillPaid, BillCancelled, false},
		{BillCancelled, BillDraft, false},
		{BillDraft, BillPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, BillPaid.IsTerminal())
	assert.True(t, BillCancelled.IsTerminal())
	assert.False(t, BillOverdue.IsTerminal())
	assert.True(t, BillUnderReview.Editable())
	assert.False(t, BillApproved.Editable())
}

func TestPeriod_Contains(t *testing.T) {
	p := Period{StartDate: date(2025, time.January, 1), EndDate: date(2025, time.February, 1)}

	assert.True(t, p.Contains(date(2025, time.January, 1)))
	assert.True(t, p.Contains(date(2025, time.January, 31).Add(23*time.Hour)))
	assert.False(t, p.Contains(date(2025, time.February, 1)))
	assert.False(t, p.Contains(date(2024, time.December, 31)))
}

func TestMonthPeriod(t *testing.T) {
	p := MonthPeriod(time.Date(2024, time.February, 17, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, date(2024, time.February, 1), p.StartDate)
	assert.Equal(t, date(2024, time.March, 1), p.EndDate)
}

func TestIsValidUtilityType(t *testing.T) {
	assert.True(t, IsValidUtilityType(UtilityFloorHeating))
	assert.True(t, IsValidUtilityType(UtilityCarCharging))
	assert.False(t, IsValidUtilityType("steam"))
}

func TestBeverageCart_Recalculate(t *testing.T) {
	c := &BeverageCart{Items: []CartItem{
		{ID: primitive.NewObjectID(), Quantity: 3, UnitPrice: 0.1},
		{ID: primitive.NewObjectID(), Quantity: 2, UnitPrice: 4.35},
	}}
	c.Recalculate()

	assert.Equal(t, 0.3, c.Items[0].TotalPrice)
	assert.Equal(t, 8.7, c.Items[1].TotalPrice)
	assert.Equal(t, 9.0, c.TotalAmount)
	assert.Equal(t, 1, c.FindItem(c.Items[1].ID))
	assert.Equal(t, -1, c.FindItem(primitive.NewObjectID()))
}

func TestLeaveDays(t *testing.T) {
	assert.Equal(t, 1, LeaveDays(date(2025, time.March, 3), date(2025, time.March, 3)))
	assert.Equal(t, 5, LeaveDays(date(2025, time.March, 3), date(2025, time.March, 7).Add(10*time.Hour)))
}

func TestUtilityBill_ConsumptionIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	bill := UtilityBill{BeverageConsumption: BeverageSummary{Items: []BeverageBillRow{
		{BeverageConsumptionID: a}, {BeverageConsumptionID: b},
	}}}
	assert.Equal(t, []primitive.ObjectID{a, b}, bill.ConsumptionIDs())
}
