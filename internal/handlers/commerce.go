package handlers

import (
	"net/http"

	"github.com/ukydev/apartment-management/internal/cart"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/facility"
	"github.com/ukydev/apartment-management/internal/models"
)

// CommerceHandler serves the beverage catalog, carts and the consumption ledger.
type CommerceHandler struct {
	carts        *cart.Service
	facility     *facility.Service
	consumptions db.ConsumptionCollection
}

// NewCommerceHandler creates a new beverage, cart and consumption handler
func NewCommerceHandler(carts *cart.Service, fac *facility.Service, consumptions db.ConsumptionCollection) *CommerceHandler {
	return &CommerceHandler{carts: carts, facility: fac, consumptions: consumptions}
}

type beverageRequest struct {
	Name        string                  `json:"name" validate:"required,max=100"`
	Description string                  `json:"description" validate:"max=500"`
	Price       float64                 `json:"price" validate:"gt=0"`
	Category    models.BeverageCategory `json:"category" validate:"required,oneof=Alcoholic Non-Alcoholic"`
	IsAvailable *bool                   `json:"is_available"`
	Stock       int                     `json:"stock" validate:"gte=0"`
}

type beverageUpdateRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,max=100"`
	Description *string                  `json:"description" validate:"omitempty,max=500"`
	Price       *float64                 `json:"price" validate:"omitempty,gt=0"`
	Category    *models.BeverageCategory `json:"category" validate:"omitempty,oneof=Alcoholic Non-Alcoholic"`
	IsAvailable *bool                    `json:"is_available"`
	Stock       *int                     `json:"stock" validate:"omitempty,gte=0"`
}

// ListBeverages shows the orderable catalog; admins may pass ?all=true.
func (h *CommerceHandler) ListBeverages(w http.ResponseWriter, r *http.Request) {
	availableOnly := true
	if _, claims, err := caller(r); err == nil && claims.Role == models.RoleAdmin && r.URL.Query().Get("all") == "true" {
		availableOnly = false
	}
	beverages, err := h.facility.ListBeverages(r.Context(), availableOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, beverages)
}

func (h *CommerceHandler) CreateBeverage(w http.ResponseWriter, r *http.Request) {
	var req beverageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b := &models.Beverage{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
		Stock:       req.Stock,
	}
	if err := h.facility.CreateBeverage(r.Context(), b); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Beverage created successfully", b)
}

func (h *CommerceHandler) UpdateBeverage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req beverageUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.facility.UpdateBeverage(r.Context(), id, facility.BeverageUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Beverage updated successfully", b)
}

func (h *CommerceHandler) DeleteBeverage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.facility.DeleteBeverage(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Beverage deleted successfully", nil)
}

func (h *CommerceHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.ActiveCart(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, c)
}

type addItemRequest struct {
	BeverageID string `json:"beverage_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gte=1,lte=50"`
}

func (h *CommerceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	beverageID, err := optionalID(req.BeverageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.AddItem(r.Context(), tenantID, *beverageID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Item added to cart", c)
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=50"`
}

func (h *CommerceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.UpdateItemQuantity(r.Context(), tenantID, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Cart updated", c)
}

func (h *CommerceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.RemoveItem(r.Context(), tenantID, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Item removed from cart", c)
}

func (h *CommerceHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, records, err := h.carts.Checkout(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order placed successfully", map[string]any{"cart": c, "records": records})
}

func (h *CommerceHandler) MyConsumption(w http.ResponseWriter, r *http.Request) {
	tenantID, _, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := consumptionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.TenantID = &tenantID
	records, err := h.consumptions.FindConsumptions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, records)
}

func (h *CommerceHandler) ListConsumption(w http.ResponseWriter, r *http.Request) {
	filter, err := consumptionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if filter.TenantID, err = optionalID(r.URL.Query().Get("tenant_id")); err != nil {
		writeError(w, r, err)
		return
	}
	records, err := h.consumptions.FindConsumptions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, records)
}

// ConsumptionSummary aggregates spend per tenant over [from, to].
func (h *CommerceHandler) ConsumptionSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := consumptionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.carts.Summary(r.Context(), filter.From, filter.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, summary)
}

// consumptionFilter reads ?from=, ?to= (inclusive dates), ?payment_status=
// and ?included_in_bill=.
func consumptionFilter(r *http.Request) (db.ConsumptionFilter, error) {
	q := r.URL.Query()
	from, err := optionalDate(q.Get("from"))
	if err != nil {
		return db.ConsumptionFilter{}, err
	}
	to, err := optionalDate(q.Get("to"))
	if err != nil {
		return db.ConsumptionFilter{}, err
	}
	if to != nil {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	return db.ConsumptionFilter{
		From:           from,
		To:             to,
		PaymentStatus:  models.PaymentStatus(q.Get("payment_status")),
		IncludedInBill: queryBool(r, "included_in_bill"),
	}, nil
}
