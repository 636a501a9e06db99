// Package cart manages tenants' beverage carts and turns them into
// consumption records.
package cart

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	tx           db.TxManager
	users        db.UserCollection
	beverages    db.BeverageCollection
	carts        db.CartCollection
	consumptions db.ConsumptionCollection
	now          func() time.Time
}

// NewService creates a cart service over the shared stores.
func NewService(stores *db.Stores) *Service {
	return &Service{
		tx:           stores.Tx,
		users:        stores.Users,
		beverages:    stores.Beverages,
		carts:        stores.Carts,
		consumptions: stores.Consumptions,
		now:          time.Now,
	}
}

// ActiveCart returns the tenant's active cart, creating an empty one if none exists.
func (s *Service) ActiveCart(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, error) {
	return s.mutate(ctx, tenantID, func(ctx context.Context, cart *models.BeverageCart) (bool, error) {
		return false, nil
	})
}

// AddItem adds quantity of a beverage. An existing line for the same beverage
// is merged and keeps the unit price it was first added at.
func (s *Service) AddItem(ctx context.Context, tenantID, beverageID primitive.ObjectID, quantity int) (*models.BeverageCart, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	return s.mutate(ctx, tenantID, func(ctx context.Context, cart *models.BeverageCart) (bool, error) {
		beverage, err := s.beverages.FindBeverageByID(ctx, beverageID)
		if err != nil {
			return false, err
		}
		if !beverage.IsAvailable {
			return false, apperr.Unavailable("beverage %s is not available", beverage.Name)
		}

		if i := cart.FindBeverage(beverageID); i >= 0 {
			cart.Items[i].Quantity += quantity
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				ID:           primitive.NewObjectID(),
				BeverageID:   beverage.ID,
				BeverageName: beverage.Name,
				Quantity:     quantity,
				UnitPrice:    beverage.Price,
				AddedAt:      s.now(),
			})
		}
		return true, nil
	})
}

// UpdateItemQuantity sets a line's quantity. Zero or less removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, tenantID, itemID primitive.ObjectID, quantity int) (*models.BeverageCart, error) {
	return s.mutate(ctx, tenantID, func(ctx context.Context, cart *models.BeverageCart) (bool, error) {
		i := cart.FindItem(itemID)
		if i < 0 {
			return false, apperr.NotFound("cart item")
		}
		if quantity <= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		} else {
			cart.Items[i].Quantity = quantity
		}
		return true, nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, tenantID, itemID primitive.ObjectID) (*models.BeverageCart, error) {
	return s.UpdateItemQuantity(ctx, tenantID, itemID, 0)
}

// mutate runs fn against the tenant's active cart inside a transaction and
// persists it when fn reports a change. A concurrent first-time cart
// creation surfaces as a duplicate key; the operation is then retried once
// against the cart that won.
func (s *Service) mutate(ctx context.Context, tenantID primitive.ObjectID, fn func(context.Context, *models.BeverageCart) (bool, error)) (*models.BeverageCart, error) {
	var cart *models.BeverageCart
	run := func() error {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			cart, err = s.findOrCreate(ctx, tenantID)
			if err != nil {
				return err
			}
			changed, err := fn(ctx, cart)
			if err != nil || !changed {
				return err
			}
			cart.Recalculate()
			return s.carts.UpdateCart(ctx, cart)
		})
	}

	err := run()
	if errors.Is(err, db.ErrDuplicateKey) {
		log.WithField("tenant_id", tenantID.Hex()).Debug("Active cart created concurrently, retrying")
		err = run()
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) findOrCreate(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, error) {
	cart, err := s.carts.FindActiveCart(ctx, tenantID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	cart = &models.BeverageCart{TenantID: tenantID, Status: models.CartActive, Items: []models.CartItem{}}
	if err := s.carts.InsertCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Checkout converts every cart line into a consumption record and moves the
// cart to ordered, all in one transaction.
func (s *Service) Checkout(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, []models.BeverageConsumption, error) {
	var (
		cart    *models.BeverageCart
		records []models.BeverageConsumption
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.carts.FindActiveCart(ctx, tenantID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.ErrEmptyCart
		}
		tenant, err := s.users.FindUserByID(ctx, tenantID)
		if err != nil {
			return err
		}

		now := s.now()
		records = ConsumptionRecords(cart, tenant, now, models.ConsumptionConsumed)
		if err := s.consumptions.InsertConsumptions(ctx, records); err != nil {
			return err
		}
		cart.Status = models.CartOrdered
		cart.OrderedAt = &now
		return s.carts.UpdateCart(ctx, cart)
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(log.Fields{
		"tenant_id": tenantID.Hex(),
		"cart_id":   cart.ID.Hex(),
		"records":   len(records),
		"total":     cart.TotalAmount,
	}).Info("Cart checked out")
	return cart, records, nil
}

// ConsumptionRecords builds one pending, unbilled record per cart line,
// snapshotting the tenant's room and apartment.
func ConsumptionRecords(cart *models.BeverageCart, tenant *models.User, at time.Time, status models.ConsumptionStatus) []models.BeverageConsumption {
	cartID := cart.ID
	var (
		room string
		apt  *primitive.ObjectID
	)
	if tenant.TenantInfo != nil {
		room = tenant.TenantInfo.RoomNumber
		apt = tenant.TenantInfo.ApartmentID
	}

	records := make([]models.BeverageConsumption, 0, len(cart.Items))
	for _, item := range cart.Items {
		records = append(records, models.BeverageConsumption{
			ID:              primitive.NewObjectID(),
			TenantID:        cart.TenantID,
			BeverageID:      item.BeverageID,
			BeverageName:    item.BeverageName,
			CartID:          &cartID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TotalAmount:     models.LineTotal(item.Quantity, item.UnitPrice),
			ConsumptionDate: at,
			RoomNumber:      room,
			ApartmentID:     apt,
			Status:          status,
			PaymentStatus:   models.PaymentPending,
			PaymentMethod:   models.PaymentAccount,
		})
	}
	return records
}

// TenantSummary aggregates one tenant's consumption over a window.
type TenantSummary struct {
	TenantID      primitive.ObjectID `json:"tenant_id"`
	RoomNumber    string             `json:"room_number,omitempty"`
	Records       int                `json:"records"`
	Quantity      int                `json:"quantity"`
	TotalAmount   float64            `json:"total_amount"`
	PendingAmount float64            `json:"pending_amount"`
	UnbilledCount int                `json:"unbilled_count"`
}

// Summary groups consumption in [from, to) by tenant, largest spend first.
func (s *Service) Summary(ctx context.Context, from, to *time.Time) ([]TenantSummary, error) {
	records, err := s.consumptions.FindConsumptions(ctx, db.ConsumptionFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	type acc struct {
		row     TenantSummary
		total   decimal.Decimal
		pending decimal.Decimal
	}
	byTenant := map[primitive.ObjectID]*acc{}
	for _, r := range records {
		a, ok := byTenant[r.TenantID]
		if !ok {
			a = &acc{row: TenantSummary{TenantID: r.TenantID, RoomNumber: r.RoomNumber}}
			byTenant[r.TenantID] = a
		}
		amount := decimal.NewFromFloat(r.TotalAmount)
		a.row.Records++
		a.row.Quantity += r.Quantity
		a.total = a.total.Add(amount)
		if r.PaymentStatus == models.PaymentPending {
			a.pending = a.pending.Add(amount)
		}
		if !r.IncludedInBill {
			a.row.UnbilledCount++
		}
	}

	out := make([]TenantSummary, 0, len(byTenant))
	for _, a := range byTenant {
		a.row.TotalAmount = a.total.Round(2).InexactFloat64()
		a.row.PendingAmount = a.pending.Round(2).InexactFloat64()
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		return out[i].TenantID.Hex() < out[j].TenantID.Hex()
	})
	return out, nil
}
