package billing

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Intent selects the status a generated bill starts in.
type Intent string

const (
	IntentDraft Intent = "draft"
	IntentSend  Intent = "sent"
)

type GenerateRequest struct {
	TenantID          primitive.ObjectID
	Period            models.Period
	Readings          []Reading
	AdditionalCharges []models.Adjustment
	Discounts         []models.Adjustment
	Tax               float64
	DueDate           *time.Time
	AdminNotes        string
	Intent            Intent
	GeneratedBy       *primitive.ObjectID
}

// BillChanges edits a draft or under-review bill. Nil fields are left as is.
type BillChanges struct {
	Readings          []Reading
	AdditionalCharges []models.Adjustment
	Discounts         []models.Adjustment
	Tax               *float64
	DueDate           *time.Time
	AdminNotes        *string
}

// Generator creates bills and folds pending beverage consumption into them.
type Generator struct {
	tx           db.TxManager
	users        db.UserCollection
	apartments   db.ApartmentCollection
	consumptions db.ConsumptionCollection
	bills        db.BillCollection
	numbers      *NumberAllocator
	dispatcher   notify.Dispatcher
	dueDay       int
	now          func() time.Time
}

// NewGenerator creates a bill generator. dueDay outside 1-28 falls back to 15.
func NewGenerator(stores *db.Stores, dispatcher notify.Dispatcher, dueDay int) *Generator {
	if dueDay < 1 || dueDay > 28 {
		dueDay = 15
	}
	return &Generator{
		tx:           stores.Tx,
		users:        stores.Users,
		apartments:   stores.Apartments,
		consumptions: stores.Consumptions,
		bills:        stores.Bills,
		numbers:      NewNumberAllocator(stores.Counters, stores.Bills),
		dispatcher:   dispatcher,
		dueDay:       dueDay,
		now:          time.Now,
	}
}

// GenerateBill builds and stores a bill for one tenant and period. Pending,
// unbilled consumption inside the period is folded in and flagged in the
// same transaction. A bill-number collision on insert retries generation once.
func (g *Generator) GenerateBill(ctx context.Context, req GenerateRequest) (*models.UtilityBill, error) {
	if req.Intent == "" {
		req.Intent = IntentDraft
	}
	if req.Intent != IntentDraft && req.Intent != IntentSend {
		return nil, apperr.Validation("unknown bill intent %q", req.Intent)
	}
	if !req.Period.EndDate.After(req.Period.StartDate) {
		return nil, apperr.Validation("billing period must end after it starts")
	}
	if err := validateAdjustments(req.AdditionalCharges, req.Discounts); err != nil {
		return nil, err
	}
	if req.Tax < 0 {
		return nil, apperr.Validation("tax cannot be negative")
	}
	lines, err := UtilityLines(req.Readings)
	if err != nil {
		return nil, err
	}

	var (
		bill   *models.UtilityBill
		tenant *models.User
	)
	generate := func() error {
		return g.tx.RunInTx(ctx, func(ctx context.Context) error {
			var aptID primitive.ObjectID
			var err error
			tenant, aptID, err = g.loadTenant(ctx, req.TenantID)
			if err != nil {
				return err
			}
			existing, err := g.periodBills(ctx, tenant.ID, req.Period)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return apperr.Conflict("bill %s already covers this period for %s", existing[0].BillNumber, tenant.Email)
			}

			unbilled := false
			pending, err := g.consumptions.FindConsumptions(ctx, db.ConsumptionFilter{
				TenantID:       &tenant.ID,
				PaymentStatus:  models.PaymentPending,
				IncludedInBill: &unbilled,
				From:           &req.Period.StartDate,
				To:             &req.Period.EndDate,
			})
			if err != nil {
				return err
			}

			now := g.now()
			bill = &models.UtilityBill{
				TenantID:          tenant.ID,
				ApartmentID:       aptID,
				BillingPeriod:     req.Period,
				Utilities:         lines,
				AdditionalCharges: orEmpty(req.AdditionalCharges),
				Discounts:         orEmpty(req.Discounts),
				Tax:               req.Tax,
				Status:            models.BillDraft,
				DueDate:           g.dueDate(req.Period),
				GeneratedBy:       req.GeneratedBy,
				AdminNotes:        req.AdminNotes,
			}
			if req.DueDate != nil {
				bill.DueDate = *req.DueDate
			}
			if req.Intent == IntentSend {
				bill.Status = models.BillSent
				bill.SentAt = &now
			}
			return g.insert(ctx, bill, pending, now)
		})
	}

	err = generate()
	if errors.Is(err, db.ErrDuplicateKey) {
		log.WithField("tenant_id", req.TenantID.Hex()).Warn("Bill number collided on insert, regenerating")
		err = generate()
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"bill_number": bill.BillNumber,
		"tenant_id":   bill.TenantID.Hex(),
		"status":      bill.Status,
		"total":       bill.TotalAmount,
		"beverages":   len(bill.BeverageConsumption.Items),
	}).Info("Utility bill generated")

	if req.Intent == IntentSend {
		announce(ctx, g.bills, g.dispatcher, tenant, bill, g.now())
	}
	return bill, nil
}

// insert folds records, numbers and stores the bill, then flags the records.
// MarkIncludedInBill fails if any record was folded concurrently, which
// aborts the whole transaction.
func (g *Generator) insert(ctx context.Context, bill *models.UtilityBill, records []models.BeverageConsumption, now time.Time) error {
	fold(bill, records)
	ComputeTotals(bill)

	number, err := g.numbers.Next(ctx, now)
	if err != nil {
		return err
	}
	bill.BillNumber = number
	if err := g.bills.InsertBill(ctx, bill); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	return g.consumptions.MarkIncludedInBill(ctx, ids(records), bill.ID, bill.BillingPeriod)
}

// FoldIntoDraft attaches records to the tenant's bill for period, creating a
// draft if the tenant has none. A bill that is already approved, sent or
// settled is not reopened: the fold fails with Conflict and the caller's
// transaction rolls back. It joins the caller's transaction.
func (g *Generator) FoldIntoDraft(ctx context.Context, tenant *models.User, records []models.BeverageConsumption, period models.Period) (*models.UtilityBill, error) {
	var bill *models.UtilityBill
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		aptID := tenant.ApartmentID()
		if aptID == nil {
			return apperr.Validation("tenant %s has no apartment to bill", tenant.Email)
		}
		existing, err := g.periodBills(ctx, tenant.ID, period)
		if err != nil {
			return err
		}

		now := g.now()
		if len(existing) == 0 {
			bill = &models.UtilityBill{
				TenantID:          tenant.ID,
				ApartmentID:       *aptID,
				BillingPeriod:     period,
				Utilities:         []models.UtilityLine{},
				AdditionalCharges: []models.Adjustment{},
				Discounts:         []models.Adjustment{},
				Status:            models.BillDraft,
				DueDate:           g.dueDate(period),
				AdminNotes:        "Created by the monthly beverage sweep",
			}
			return g.insert(ctx, bill, records, now)
		}

		bill = &existing[0]
		if !bill.Status.Editable() {
			return apperr.Conflict("bill %s for this period is already %s", bill.BillNumber, bill.Status)
		}
		fold(bill, records)
		ComputeTotals(bill)
		if err := g.bills.UpdateBill(ctx, bill, bill.Status); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return g.consumptions.MarkIncludedInBill(ctx, ids(records), bill.ID, bill.BillingPeriod)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// periodBills returns the tenant's non-cancelled bills overlapping period.
func (g *Generator) periodBills(ctx context.Context, tenantID primitive.ObjectID, period models.Period) ([]models.UtilityBill, error) {
	return g.bills.FindBills(ctx, db.BillFilter{
		TenantID:       &tenantID,
		Statuses:       models.OpenBillStatuses,
		PeriodStartTo:  &period.EndDate,
		PeriodEndAfter: &period.StartDate,
	})
}

// UpdateDraft edits the lines of a draft or under-review bill and recomputes
// its totals.
func (g *Generator) UpdateDraft(ctx context.Context, billID primitive.ObjectID, changes BillChanges) (*models.UtilityBill, error) {
	if err := validateAdjustments(changes.AdditionalCharges, changes.Discounts); err != nil {
		return nil, err
	}
	if changes.Tax != nil && *changes.Tax < 0 {
		return nil, apperr.Validation("tax cannot be negative")
	}

	var bill *models.UtilityBill
	err := g.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		bill, err = g.bills.FindBillByID(ctx, billID)
		if err != nil {
			return err
		}
		if !bill.Status.Editable() {
			return apperr.InvalidTransition("bill", string(bill.Status), "edited")
		}
		if changes.Readings != nil {
			lines, err := UtilityLines(changes.Readings)
			if err != nil {
				return err
			}
			bill.Utilities = lines
		}
		if changes.AdditionalCharges != nil {
			bill.AdditionalCharges = changes.AdditionalCharges
		}
		if changes.Discounts != nil {
			bill.Discounts = changes.Discounts
		}
		if changes.Tax != nil {
			bill.Tax = *changes.Tax
		}
		if changes.DueDate != nil {
			bill.DueDate = *changes.DueDate
		}
		if changes.AdminNotes != nil {
			bill.AdminNotes = *changes.AdminNotes
		}
		ComputeTotals(bill)
		return g.bills.UpdateBill(ctx, bill, bill.Status)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (g *Generator) loadTenant(ctx context.Context, id primitive.ObjectID) (*models.User, primitive.ObjectID, error) {
	tenant, err := g.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if tenant.Role != models.RoleTenant || tenant.IsDeleted {
		return nil, primitive.NilObjectID, apperr.NotFound("tenant")
	}
	aptID := tenant.ApartmentID()
	if aptID == nil {
		return nil, primitive.NilObjectID, apperr.Validation("tenant %s has no apartment assigned", tenant.Email)
	}
	if _, err := g.apartments.FindApartmentByID(ctx, *aptID); err != nil {
		return nil, primitive.NilObjectID, err
	}
	return tenant, *aptID, nil
}

// dueDate falls on the configured day of the month after the period starts.
func (g *Generator) dueDate(p models.Period) time.Time {
	s := p.StartDate
	return time.Date(s.Year(), s.Month()+1, g.dueDay, 0, 0, 0, 0, s.Location())
}

func validateAdjustments(charges, discounts []models.Adjustment) error {
	for _, a := range append(append([]models.Adjustment{}, charges...), discounts...) {
		if a.Amount < 0 {
			return apperr.Validation("adjustment %q must not be negative", a.Description)
		}
	}
	return nil
}

func orEmpty(a []models.Adjustment) []models.Adjustment {
	if a == nil {
		return []models.Adjustment{}
	}
	return a
}

// announce dispatches the bill to its tenant after commit and records the
// outcome in EmailSent. Failures are logged, never returned.
func announce(ctx context.Context, bills db.BillCollection, dispatcher notify.Dispatcher, tenant *models.User, bill *models.UtilityBill, now time.Time) bool {
	logger := log.WithFields(log.Fields{"bill_number": bill.BillNumber, "tenant_id": bill.TenantID.Hex()})

	sent := false
	if dispatcher != nil && tenant != nil {
		if err := dispatcher.Dispatch(ctx, notify.UtilityBillMessage(tenant, bill)); err != nil {
			logger.WithError(err).Warn("Bill dispatch failed")
		} else {
			sent = true
		}
	}

	bill.EmailSent = sent
	if sent {
		bill.EmailSentAt = &now
	}
	if err := bills.UpdateBill(ctx, bill, bill.Status); err != nil {
		logger.WithError(err).Error("Failed to record bill dispatch outcome")
	}
	return sent
}
