package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/billing"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BillHandler serves bill generation and the billing workflow.
type BillHandler struct {
	bills     db.BillCollection
	generator *billing.Generator
	workflow  *billing.Workflow
	sweeper   *billing.Sweeper
}

// NewBillHandler creates a new bill handler
func NewBillHandler(bills db.BillCollection, generator *billing.Generator, workflow *billing.Workflow, sweeper *billing.Sweeper) *BillHandler {
	return &BillHandler{bills: bills, generator: generator, workflow: workflow, sweeper: sweeper}
}

type generateBillRequest struct {
	TenantID          string              `json:"tenant_id" validate:"required"`
	StartDate         string              `json:"start_date" validate:"required"`
	EndDate           string              `json:"end_date" validate:"required"`
	Utilities         []billing.Reading   `json:"utilities" validate:"dive"`
	AdditionalCharges []models.Adjustment `json:"additional_charges"`
	Discounts         []models.Adjustment `json:"discounts"`
	Tax               float64             `json:"tax" validate:"gte=0"`
	DueDate           string              `json:"due_date"`
	AdminNotes        string              `json:"admin_notes" validate:"max=1000"`
}

func (req generateBillRequest) toRequest(intent billing.Intent, by primitive.ObjectID) (billing.GenerateRequest, error) {
	tenantID, err := optionalID(req.TenantID)
	if err != nil {
		return billing.GenerateRequest{}, err
	}
	period, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return billing.GenerateRequest{}, err
	}
	due, err := optionalDate(req.DueDate)
	if err != nil {
		return billing.GenerateRequest{}, err
	}
	return billing.GenerateRequest{
		TenantID:          *tenantID,
		Period:            period,
		Readings:          req.Utilities,
		AdditionalCharges: req.AdditionalCharges,
		Discounts:         req.Discounts,
		Tax:               req.Tax,
		DueDate:           due,
		AdminNotes:        req.AdminNotes,
		Intent:            intent,
		GeneratedBy:       &by,
	}, nil
}

// CreateDraft stages a bill for review.
func (h *BillHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, billing.IntentDraft, "Bill draft created")
}

// SendNow creates a bill and sends it immediately.
func (h *BillHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, billing.IntentSend, "Bill created and sent")
}

func (h *BillHandler) generate(w http.ResponseWriter, r *http.Request, intent billing.Intent, msg string) {
	adminID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req generateBillRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	genReq, err := req.toRequest(intent, adminID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.generator.GenerateBill(r.Context(), genReq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, msg, bill)
}

func billFilter(r *http.Request) (db.BillFilter, error) {
	q := r.URL.Query()
	var f db.BillFilter
	for _, s := range q["status"] {
		f.Statuses = append(f.Statuses, models.BillStatus(s))
	}
	var err error
	if f.TenantID, err = optionalID(q.Get("tenant_id")); err != nil {
		return f, err
	}
	if q.Get("month") != "" {
		month, err := time.Parse("2006-01", q.Get("month"))
		if err != nil {
			return f, apperr.Validation("invalid month %q, expected YYYY-MM", q.Get("month"))
		}
		period := models.MonthPeriod(month)
		f.PeriodStartFrom, f.PeriodStartTo = &period.StartDate, &period.EndDate
	}
	return f, nil
}

func (h *BillHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	filter, err := billFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := h.bills.FindBills(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, bills)
}

// MyBills lists the caller's bills. Drafts and bills under review stay
// internal until they are sent.
func (h *BillHandler) MyBills(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := h.bills.FindBills(r.Context(), db.BillFilter{
		TenantID: &tenantID,
		Statuses: []models.BillStatus{models.BillSent, models.BillPaid, models.BillOverdue},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, bills)
}

func (h *BillHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := billFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.workflow.Stats(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// GetBill returns one bill. Tenants only see their own sent bills.
func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	userID, claims, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.bills.FindBillByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if claims.Role == models.RoleTenant {
		visible := bill.Status == models.BillSent || bill.Status == models.BillPaid || bill.Status == models.BillOverdue
		if bill.TenantID != userID || !visible {
			writeError(w, r, apperr.NotFound("bill"))
			return
		}
	}
	writeData(w, http.StatusOK, bill)
}

type updateBillRequest struct {
	Utilities         []billing.Reading   `json:"utilities" validate:"omitempty,dive"`
	AdditionalCharges []models.Adjustment `json:"additional_charges"`
	Discounts         []models.Adjustment `json:"discounts"`
	Tax               *float64            `json:"tax" validate:"omitempty,gte=0"`
	DueDate           string              `json:"due_date"`
	AdminNotes        *string             `json:"admin_notes" validate:"omitempty,max=1000"`
}

func (h *BillHandler) UpdateBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBillRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	due, err := optionalDate(req.DueDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.generator.UpdateDraft(r.Context(), id, billing.BillChanges{
		Readings:          req.Utilities,
		AdditionalCharges: req.AdditionalCharges,
		Discounts:         req.Discounts,
		Tax:               req.Tax,
		DueDate:           due,
		AdminNotes:        req.AdminNotes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bill updated successfully", bill)
}

func (h *BillHandler) DeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.workflow.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bill deleted successfully", nil)
}

type billIDsRequest struct {
	BillIDs []string `json:"bill_ids" validate:"required,min=1,max=200"`
}

// SubmitForReview moves a batch of drafts to under_review.
func (h *BillHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	adminID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, ok := h.batchIDs(w, r)
	if !ok {
		return
	}
	writeBatch(w, h.workflow.SubmitForReview(r.Context(), ids, adminID))
}

// SendBills sends a batch of approved bills.
func (h *BillHandler) SendBills(w http.ResponseWriter, r *http.Request) {
	ids, ok := h.batchIDs(w, r)
	if !ok {
		return
	}
	writeBatch(w, h.workflow.SendBills(r.Context(), ids))
}

func (h *BillHandler) batchIDs(w http.ResponseWriter, r *http.Request) ([]primitive.ObjectID, bool) {
	var req billIDsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	ids, err := parseIDs(req.BillIDs)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return ids, true
}

func writeBatch(w http.ResponseWriter, results []billing.BatchResult) {
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	writeData(w, http.StatusOK, map[string]any{
		"results":   results,
		"succeeded": len(results) - failed,
		"failed":    failed,
	})
}

type reviewRequest struct {
	Action billing.ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	Notes  string               `json:"notes" validate:"max=1000"`
}

func (h *BillHandler) ReviewBill(w http.ResponseWriter, r *http.Request) {
	adminID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.workflow.ReviewBill(r.Context(), id, req.Action, adminID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bill reviewed", bill)
}

type markPaidRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=cash card online account"`
	Notes         string               `json:"notes" validate:"max=1000"`
}

func (h *BillHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req markPaidRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.workflow.MarkPaid(r.Context(), id, req.PaymentMethod, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bill marked as paid", bill)
}

type cancelRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (h *BillHandler) CancelBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := h.workflow.Cancel(r.Context(), id, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Bill cancelled", bill)
}

// Sweep runs the monthly cart sweep on demand.
func (h *BillHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.sweeper.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
