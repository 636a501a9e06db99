package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// BatchResult reports the outcome for one bill of a batch operation.
type BatchResult struct {
	BillID     primitive.ObjectID `json:"bill_id"`
	BillNumber string             `json:"bill_number,omitempty"`
	Status     models.BillStatus  `json:"status,omitempty"`
	EmailSent  *bool              `json:"email_sent,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Workflow drives bills through the status machine.
type Workflow struct {
	tx           db.TxManager
	users        db.UserCollection
	bills        db.BillCollection
	consumptions db.ConsumptionCollection
	dispatcher   notify.Dispatcher
	now          func() time.Time
}

// NewWorkflow creates the bill status workflow.
func NewWorkflow(stores *db.Stores, dispatcher notify.Dispatcher) *Workflow {
	return &Workflow{
		tx:           stores.Tx,
		users:        stores.Users,
		bills:        stores.Bills,
		consumptions: stores.Consumptions,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// transition moves a bill to next inside a transaction. mutate may stamp
// fields and perform further writes in the same transaction.
func (w *Workflow) transition(ctx context.Context, id primitive.ObjectID, next models.BillStatus, mutate func(ctx context.Context, bill *models.UtilityBill, now time.Time) error) (*models.UtilityBill, error) {
	var bill *models.UtilityBill
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		bill, err = w.bills.FindBillByID(ctx, id)
		if err != nil {
			return err
		}
		prev := bill.Status
		if !prev.CanTransitionTo(next) {
			return apperr.InvalidTransition("bill", string(prev), string(next))
		}
		bill.Status = next
		now := w.now()
		if mutate != nil {
			if err := mutate(ctx, bill, now); err != nil {
				return err
			}
		}
		return w.bills.UpdateBill(ctx, bill, prev)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"bill_number": bill.BillNumber, "status": bill.Status}).Info("Bill status changed")
	return bill, nil
}

// SubmitForReview moves draft bills to under_review.
func (w *Workflow) SubmitForReview(ctx context.Context, ids []primitive.ObjectID, by primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		bill, err := w.transition(ctx, id, models.BillUnderReview, func(_ context.Context, bill *models.UtilityBill, now time.Time) error {
			bill.GeneratedAt = &now
			if bill.GeneratedBy == nil {
				bill.GeneratedBy = &by
			}
			return nil
		})
		results = append(results, result(id, bill, err))
	}
	return results
}

// ReviewBill approves or rejects a bill under review. Any other starting
// status fails with ErrInvalidTransition.
func (w *Workflow) ReviewBill(ctx context.Context, id primitive.ObjectID, action ReviewAction, reviewer primitive.ObjectID, notes string) (*models.UtilityBill, error) {
	var next models.BillStatus
	switch action {
	case ReviewApprove:
		next = models.BillApproved
	case ReviewReject:
		next = models.BillDraft
	default:
		return nil, apperr.Validation("review action must be approve or reject")
	}

	var bill *models.UtilityBill
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		bill, err = w.bills.FindBillByID(ctx, id)
		if err != nil {
			return err
		}
		if bill.Status != models.BillUnderReview {
			return apperr.InvalidTransition("bill", string(bill.Status), string(next))
		}
		now := w.now()
		bill.Status = next
		bill.ReviewedBy = &reviewer
		bill.ReviewedAt = &now
		bill.ReviewNotes = notes
		if next == models.BillApproved {
			bill.ApprovedBy = &reviewer
			bill.ApprovedAt = &now
		} else {
			bill.ApprovedBy = nil
			bill.ApprovedAt = nil
		}
		return w.bills.UpdateBill(ctx, bill, models.BillUnderReview)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"bill_number": bill.BillNumber, "action": action}).Info("Bill reviewed")
	return bill, nil
}

// SendBills moves approved bills to sent and dispatches each to its tenant.
// A failed dispatch never blocks the transition; it is recorded in EmailSent.
func (w *Workflow) SendBills(ctx context.Context, ids []primitive.ObjectID) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		bill, err := w.transition(ctx, id, models.BillSent, func(_ context.Context, bill *models.UtilityBill, now time.Time) error {
			bill.SentAt = &now
			return nil
		})
		res := result(id, bill, err)
		if err == nil {
			tenant, terr := w.users.FindUserByID(ctx, bill.TenantID)
			if terr != nil {
				log.WithError(terr).WithField("bill_number", bill.BillNumber).Warn("Bill tenant not found for dispatch")
				tenant = nil
			}
			sent := announce(ctx, w.bills, w.dispatcher, tenant, bill, w.now())
			res.EmailSent = &sent
		}
		results = append(results, res)
	}
	return results
}

// MarkPaid settles a sent or overdue bill and marks every linked consumption
// record paid in the same transaction. Paying an already paid bill succeeds
// without changing anything.
func (w *Workflow) MarkPaid(ctx context.Context, id primitive.ObjectID, method models.PaymentMethod, notes string) (*models.UtilityBill, error) {
	switch method {
	case "":
		method = models.PaymentAccount
	case models.PaymentCash, models.PaymentCard, models.PaymentOnline, models.PaymentAccount:
	default:
		return nil, apperr.Validation("unknown payment method %q", method)
	}

	var bill *models.UtilityBill
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		bill, err = w.bills.FindBillByID(ctx, id)
		if err != nil {
			return err
		}
		prev := bill.Status
		if prev != models.BillPaid {
			if !prev.CanTransitionTo(models.BillPaid) {
				return apperr.InvalidTransition("bill", string(prev), string(models.BillPaid))
			}
			now := w.now()
			bill.Status = models.BillPaid
			bill.PaidAt = &now
			bill.PaymentMethod = method
			if notes != "" {
				bill.AdminNotes = notes
			}
			if err := w.bills.UpdateBill(ctx, bill, prev); err != nil {
				return err
			}
		}
		n, err := w.consumptions.MarkPaidByBill(ctx, bill.ID)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"bill_number": bill.BillNumber, "records": n}).Info("Bill marked paid")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// MarkOverdue flags a single bill overdue.
func (w *Workflow) MarkOverdue(ctx context.Context, id primitive.ObjectID) (*models.UtilityBill, error) {
	return w.transition(ctx, id, models.BillOverdue, nil)
}

// Cancel cancels a bill and releases its folded consumption records so they
// can be billed again.
func (w *Workflow) Cancel(ctx context.Context, id primitive.ObjectID, notes string) (*models.UtilityBill, error) {
	return w.transition(ctx, id, models.BillCancelled, func(ctx context.Context, bill *models.UtilityBill, _ time.Time) error {
		if notes != "" {
			bill.AdminNotes = notes
		}
		return w.release(ctx, bill)
	})
}

// Delete removes an unpaid bill and releases its consumption records.
func (w *Workflow) Delete(ctx context.Context, id primitive.ObjectID) error {
	return w.tx.RunInTx(ctx, func(ctx context.Context) error {
		bill, err := w.bills.FindBillByID(ctx, id)
		if err != nil {
			return err
		}
		if bill.Status == models.BillPaid {
			return apperr.Conflict("paid bill %s cannot be deleted", bill.BillNumber)
		}
		if err := w.release(ctx, bill); err != nil {
			return err
		}
		return w.bills.DeleteBill(ctx, id)
	})
}

func (w *Workflow) release(ctx context.Context, bill *models.UtilityBill) error {
	n, err := w.consumptions.ReleaseFromBill(ctx, bill.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		log.WithFields(log.Fields{"bill_number": bill.BillNumber, "records": n}).Info("Released consumption records from bill")
	}
	return nil
}

// FlagOverdue moves every sent bill whose due date has passed to overdue.
func (w *Workflow) FlagOverdue(ctx context.Context, now time.Time) (int, error) {
	due, err := w.bills.FindBills(ctx, db.BillFilter{Statuses: []models.BillStatus{models.BillSent}, DueBefore: &now})
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, bill := range due {
		if _, err := w.MarkOverdue(ctx, bill.ID); err != nil {
			log.WithError(err).WithField("bill_number", bill.BillNumber).Warn("Failed to flag bill overdue")
			continue
		}
		flagged++
	}
	return flagged, nil
}

// SendReminders dispatches a reminder for each overdue bill, at most once a day.
func (w *Workflow) SendReminders(ctx context.Context) (int, error) {
	overdue, err := w.bills.FindBills(ctx, db.BillFilter{Statuses: []models.BillStatus{models.BillOverdue}})
	if err != nil {
		return 0, err
	}
	now := w.now()
	sent := 0
	for i := range overdue {
		bill := &overdue[i]
		logger := log.WithField("bill_number", bill.BillNumber)
		if bill.LastReminderAt != nil && now.Sub(*bill.LastReminderAt) < 24*time.Hour {
			continue
		}
		tenant, err := w.users.FindUserByID(ctx, bill.TenantID)
		if err != nil {
			logger.WithError(err).Warn("Skipping reminder, tenant not found")
			continue
		}
		if w.dispatcher == nil {
			continue
		}
		if err := w.dispatcher.Dispatch(ctx, notify.BillReminderMessage(tenant, bill)); err != nil {
			logger.WithError(err).Warn("Reminder dispatch failed")
			continue
		}
		bill.RemindersSent++
		bill.LastReminderAt = &now
		if err := w.bills.UpdateBill(ctx, bill, models.BillOverdue); err != nil {
			logger.WithError(err).Error("Failed to record reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

// Stats aggregates bills matching filter. Cancelled bills are counted but
// excluded from amounts.
func (w *Workflow) Stats(ctx context.Context, filter db.BillFilter) (*models.BillStats, error) {
	bills, err := w.bills.FindBills(ctx, filter)
	if err != nil {
		return nil, err
	}
	var total, paid, pending, overdue decimal.Decimal
	stats := &models.BillStats{CountsByStatus: map[models.BillStatus]int{}}
	for _, b := range bills {
		stats.TotalBills++
		stats.CountsByStatus[b.Status]++
		amount := money(b.TotalAmount)
		switch b.Status {
		case models.BillCancelled:
			continue
		case models.BillPaid:
			paid = paid.Add(amount)
		case models.BillOverdue:
			overdue = overdue.Add(amount)
		default:
			pending = pending.Add(amount)
		}
		total = total.Add(amount)
	}
	stats.TotalAmount = round(total)
	stats.PaidAmount = round(paid)
	stats.PendingAmount = round(pending)
	stats.OverdueAmount = round(overdue)
	return stats, nil
}

func result(id primitive.ObjectID, bill *models.UtilityBill, err error) BatchResult {
	if err != nil {
		return BatchResult{BillID: id, Error: apperr.Message(err)}
	}
	return BatchResult{BillID: id, BillNumber: bill.BillNumber, Status: bill.Status}
}
