package memdb

import (
	"context"
	"sort"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *Store) InsertBeverage(ctx context.Context, beverage *models.Beverage) error {
	defer s.lock(ctx)()
	if beverage.ID.IsZero() {
		beverage.ID = primitive.NewObjectID()
	}
	now := time.Now()
	beverage.CreatedAt = now
	beverage.UpdatedAt = now
	return put(s, db.BeveragesCollection, beverage.ID, beverage)
}

func (s *Store) FindBeverageByID(ctx context.Context, id primitive.ObjectID) (*models.Beverage, error) {
	defer s.lock(ctx)()
	b, ok, err := get[models.Beverage](s, db.BeveragesCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("beverage")
	}
	return b, nil
}

func (s *Store) FindBeverages(ctx context.Context, availableOnly bool) ([]models.Beverage, error) {
	defer s.lock(ctx)()
	out, err := scan(s, db.BeveragesCollection, func(b *models.Beverage) bool {
		return !availableOnly || b.IsAvailable
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpdateBeverage(ctx context.Context, beverage *models.Beverage) error {
	defer s.lock(ctx)()
	if !has(s, db.BeveragesCollection, beverage.ID) {
		return apperr.NotFound("beverage")
	}
	beverage.UpdatedAt = time.Now()
	return put(s, db.BeveragesCollection, beverage.ID, beverage)
}

func (s *Store) DeleteBeverage(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	if !has(s, db.BeveragesCollection, id) {
		return apperr.NotFound("beverage")
	}
	delete(s.collection(db.BeveragesCollection), id)
	return nil
}

func (s *Store) activeCartExists(tenantID, except primitive.ObjectID) (bool, error) {
	carts, err := scan(s, db.CartsCollection, func(c *models.BeverageCart) bool {
		return c.TenantID == tenantID && c.Status == models.CartActive && c.ID != except
	})
	return len(carts) > 0, err
}

func (s *Store) InsertCart(ctx context.Context, cart *models.BeverageCart) error {
	defer s.lock(ctx)()
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	if cart.Status == models.CartActive {
		if dup, err := s.activeCartExists(cart.TenantID, cart.ID); err != nil {
			return err
		} else if dup {
			return db.ErrDuplicateKey
		}
	}
	now := time.Now()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	return put(s, db.CartsCollection, cart.ID, cart)
}

func (s *Store) FindActiveCart(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, error) {
	defer s.lock(ctx)()
	carts, err := scan(s, db.CartsCollection, func(c *models.BeverageCart) bool {
		return c.TenantID == tenantID && c.Status == models.CartActive
	})
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, apperr.NotFound("active cart")
	}
	return &carts[0], nil
}

func (s *Store) FindCarts(ctx context.Context, f db.CartFilter) ([]models.BeverageCart, error) {
	defer s.lock(ctx)()
	return scan(s, db.CartsCollection, func(c *models.BeverageCart) bool {
		if f.TenantID != nil && c.TenantID != *f.TenantID {
			return false
		}
		return f.Status == "" || c.Status == f.Status
	})
}

func (s *Store) UpdateCart(ctx context.Context, cart *models.BeverageCart) error {
	defer s.lock(ctx)()
	if !has(s, db.CartsCollection, cart.ID) {
		return apperr.NotFound("cart")
	}
	if cart.Status == models.CartActive {
		if dup, err := s.activeCartExists(cart.TenantID, cart.ID); err != nil {
			return err
		} else if dup {
			return db.ErrDuplicateKey
		}
	}
	cart.UpdatedAt = time.Now()
	return put(s, db.CartsCollection, cart.ID, cart)
}

func (s *Store) InsertConsumptions(ctx context.Context, records []models.BeverageConsumption) error {
	defer s.lock(ctx)()
	now := time.Now()
	for i := range records {
		if records[i].ID.IsZero() {
			records[i].ID = primitive.NewObjectID()
		}
		if has(s, db.ConsumptionsCollection, records[i].ID) {
			return db.ErrDuplicateKey
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
		if err := put(s, db.ConsumptionsCollection, records[i].ID, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func matchConsumption(f db.ConsumptionFilter, c *models.BeverageConsumption) bool {
	if f.TenantID != nil && c.TenantID != *f.TenantID {
		return false
	}
	if f.BillID != nil && (c.UtilityBillID == nil || *c.UtilityBillID != *f.BillID) {
		return false
	}
	if f.PaymentStatus != "" && c.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.IncludedInBill != nil && c.IncludedInBill != *f.IncludedInBill {
		return false
	}
	if f.From != nil && c.ConsumptionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !c.ConsumptionDate.Before(*f.To) {
		return false
	}
	return true
}

func (s *Store) FindConsumptions(ctx context.Context, f db.ConsumptionFilter) ([]models.BeverageConsumption, error) {
	defer s.lock(ctx)()
	out, err := scan(s, db.ConsumptionsCollection, func(c *models.BeverageConsumption) bool {
		return matchConsumption(f, c)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ConsumptionDate.After(out[j].ConsumptionDate) })
	return out, nil
}

func (s *Store) MarkIncludedInBill(ctx context.Context, ids []primitive.ObjectID, billID primitive.ObjectID, period models.Period) error {
	defer s.lock(ctx)()
	records := make([]*models.BeverageConsumption, 0, len(ids))
	for _, id := range ids {
		c, ok, err := get[models.BeverageConsumption](s, db.ConsumptionsCollection, id)
		if err != nil {
			return err
		}
		if ok && !c.IncludedInBill {
			records = append(records, c)
		}
	}
	if len(records) != len(ids) {
		return apperr.Conflict("%d of %d consumption records were already billed", len(ids)-len(records), len(ids))
	}
	now := time.Now()
	for _, c := range records {
		c.IncludedInBill = true
		c.UtilityBillID = &billID
		p := period
		c.BillingPeriod = &p
		c.UpdatedAt = now
		if err := put(s, db.ConsumptionsCollection, c.ID, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ReleaseFromBill(ctx context.Context, billID primitive.ObjectID) (int64, error) {
	defer s.lock(ctx)()
	linked, err := scan(s, db.ConsumptionsCollection, func(c *models.BeverageConsumption) bool {
		return c.UtilityBillID != nil && *c.UtilityBillID == billID
	})
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for i := range linked {
		linked[i].IncludedInBill = false
		linked[i].UtilityBillID = nil
		linked[i].BillingPeriod = nil
		linked[i].UpdatedAt = now
		if err := put(s, db.ConsumptionsCollection, linked[i].ID, &linked[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(linked)), nil
}

func (s *Store) MarkPaidByBill(ctx context.Context, billID primitive.ObjectID) (int64, error) {
	defer s.lock(ctx)()
	unpaid, err := scan(s, db.ConsumptionsCollection, func(c *models.BeverageConsumption) bool {
		return c.UtilityBillID != nil && *c.UtilityBillID == billID && c.PaymentStatus != models.PaymentPaid
	})
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for i := range unpaid {
		unpaid[i].PaymentStatus = models.PaymentPaid
		unpaid[i].UpdatedAt = now
		if err := put(s, db.ConsumptionsCollection, unpaid[i].ID, &unpaid[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(unpaid)), nil
}
