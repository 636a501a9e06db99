// Package facility implements the beverage catalog, maintenance tickets,
// worker leave and rooftop reservations.
package facility

import (
	"context"
	"strings"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	tx           db.TxManager
	users        db.UserCollection
	beverages    db.BeverageCollection
	maintenance  db.MaintenanceCollection
	leaves       db.LeaveCollection
	reservations db.ReservationCollection
	now          func() time.Time
}

// NewService creates a facility service over the shared stores.
func NewService(stores *db.Stores) *Service {
	return &Service{
		tx:           stores.Tx,
		users:        stores.Users,
		beverages:    stores.Beverages,
		maintenance:  stores.Maintenance,
		leaves:       stores.Leaves,
		reservations: stores.Reservations,
		now:          time.Now,
	}
}

// BeverageUpdate carries optional catalog changes.
type BeverageUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *models.BeverageCategory
	IsAvailable *bool
	Stock       *int
}

func (s *Service) ListBeverages(ctx context.Context, availableOnly bool) ([]models.Beverage, error) {
	return s.beverages.FindBeverages(ctx, availableOnly)
}

func (s *Service) CreateBeverage(ctx context.Context, b *models.Beverage) error {
	if err := checkBeverage(b); err != nil {
		return err
	}
	return s.beverages.InsertBeverage(ctx, b)
}

func (s *Service) UpdateBeverage(ctx context.Context, id primitive.ObjectID, upd BeverageUpdate) (*models.Beverage, error) {
	b, err := s.beverages.FindBeverageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		b.Name = *upd.Name
	}
	if upd.Description != nil {
		b.Description = *upd.Description
	}
	if upd.Price != nil {
		b.Price = *upd.Price
	}
	if upd.Category != nil {
		b.Category = *upd.Category
	}
	if upd.IsAvailable != nil {
		b.IsAvailable = *upd.IsAvailable
	}
	if upd.Stock != nil {
		b.Stock = *upd.Stock
	}
	if err := checkBeverage(b); err != nil {
		return nil, err
	}
	if err := s.beverages.UpdateBeverage(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) DeleteBeverage(ctx context.Context, id primitive.ObjectID) error {
	return s.beverages.DeleteBeverage(ctx, id)
}

func checkBeverage(b *models.Beverage) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return apperr.Validation("beverage name is required")
	case b.Price <= 0:
		return apperr.Validation("beverage price must be positive")
	case b.Stock < 0:
		return apperr.Validation("beverage stock cannot be negative")
	case b.Category != models.CategoryAlcoholic && b.Category != models.CategoryNonAlcoholic:
		return apperr.Validation("unknown beverage category %q", b.Category)
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, id primitive.ObjectID, role models.Role) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role || user.IsDeleted {
		return nil, apperr.NotFound(string(role))
	}
	return user, nil
}
