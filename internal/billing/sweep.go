package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/cart"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SweepFailure struct {
	CartID   primitive.ObjectID `json:"cart_id"`
	TenantID primitive.ObjectID `json:"tenant_id"`
	Error    string             `json:"error"`
}

type SweepResult struct {
	ProcessedCarts int            `json:"processed_carts"`
	TotalAmount    float64        `json:"total_amount"`
	Failures       []SweepFailure `json:"failures"`
}

// Sweeper bills every active cart that was never checked out.
type Sweeper struct {
	tx           db.TxManager
	users        db.UserCollection
	carts        db.CartCollection
	consumptions db.ConsumptionCollection
	generator    *Generator
	now          func() time.Time
}

// NewSweeper creates a sweeper that folds carts through generator.
func NewSweeper(stores *db.Stores, generator *Generator) *Sweeper {
	return &Sweeper{
		tx:           stores.Tx,
		users:        stores.Users,
		carts:        stores.Carts,
		consumptions: stores.Consumptions,
		generator:    generator,
		now:          time.Now,
	}
}

// Run converts each non-empty active cart into billed consumption records
// and folds them into the tenant's open bill for the current month. Each
// cart is its own transaction, so one failing cart does not block the rest.
// A cart whose month is already billed past review stays active and is
// picked up by the next sweep.
func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	active, err := s.carts.FindCarts(ctx, db.CartFilter{Status: models.CartActive})
	if err != nil {
		return nil, err
	}

	now := s.now()
	period := models.MonthPeriod(now)
	result := &SweepResult{Failures: []SweepFailure{}}
	total := decimal.Zero

	for i := range active {
		c := &active[i]
		if len(c.Items) == 0 {
			continue
		}
		logger := log.WithFields(log.Fields{"cart_id": c.ID.Hex(), "tenant_id": c.TenantID.Hex()})
		if err := s.sweepCart(ctx, c, period, now); err != nil {
			logger.WithError(err).Error("Failed to sweep cart")
			result.Failures = append(result.Failures, SweepFailure{CartID: c.ID, TenantID: c.TenantID, Error: err.Error()})
			continue
		}
		result.ProcessedCarts++
		total = total.Add(money(c.TotalAmount))
		logger.WithField("amount", c.TotalAmount).Debug("Cart swept into bill")
	}
	result.TotalAmount = round(total)

	log.WithFields(log.Fields{
		"processed": result.ProcessedCarts,
		"failed":    len(result.Failures),
		"total":     result.TotalAmount,
	}).Info("Monthly beverage sweep finished")
	return result, nil
}

func (s *Sweeper) sweepCart(ctx context.Context, c *models.BeverageCart, period models.Period, now time.Time) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		tenant, err := s.users.FindUserByID(ctx, c.TenantID)
		if err != nil {
			return err
		}
		if tenant.IsDeleted {
			return apperr.NotFound("tenant")
		}

		records := cart.ConsumptionRecords(c, tenant, now, models.ConsumptionBilled)
		if err := s.consumptions.InsertConsumptions(ctx, records); err != nil {
			return err
		}

		c.Status = models.CartBilled
		c.BilledAt = &now
		c.BillingMonth = int(now.Month())
		c.BillingYear = now.Year()
		if err := s.carts.UpdateCart(ctx, c); err != nil {
			return err
		}

		_, err = s.generator.FoldIntoDraft(ctx, tenant, records, period)
		return err
	})
}
