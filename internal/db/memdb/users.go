package memdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) emailTaken(email string, except primitive.ObjectID) (bool, error) {
	users, err := scan(s, db.UsersCollection, func(u *models.User) bool {
		return u.Email == email && u.ID != except
	})
	return len(users) > 0, err
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	defer s.lock(ctx)()
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = normalizeEmail(user.Email)
	if taken, err := s.emailTaken(user.Email, user.ID); err != nil {
		return err
	} else if taken || has(s, db.UsersCollection, user.ID) {
		return db.ErrDuplicateKey
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.RefreshLease(now)
	return put(s, db.UsersCollection, user.ID, user)
}

func (s *Store) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok, err := get[models.User](s, db.UsersCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer s.lock(ctx)()
	email = normalizeEmail(email)
	users, err := scan(s, db.UsersCollection, func(u *models.User) bool { return u.Email == email })
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.NotFound("user")
	}
	return &users[0], nil
}

func (s *Store) FindUsers(ctx context.Context, f db.UserFilter) ([]models.User, error) {
	defer s.lock(ctx)()
	search := strings.ToLower(f.Search)
	return scan(s, db.UsersCollection, func(u *models.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			return false
		}
		if !f.IncludeDeleted && u.IsDeleted {
			return false
		}
		if f.ApartmentID != nil {
			if id := u.ApartmentID(); id == nil || *id != *f.ApartmentID {
				return false
			}
		}
		if search != "" {
			room := ""
			if u.TenantInfo != nil {
				room = u.TenantInfo.RoomNumber
			}
			if !strings.Contains(strings.ToLower(u.Name), search) &&
				!strings.Contains(u.Email, search) &&
				!strings.Contains(strings.ToLower(room), search) {
				return false
			}
		}
		if f.LeaseEndFrom != nil || f.LeaseEndTo != nil {
			if u.TenantInfo == nil || u.TenantInfo.LeaseEndDate == nil {
				return false
			}
			end := *u.TenantInfo.LeaseEndDate
			if f.LeaseEndFrom != nil && end.Before(*f.LeaseEndFrom) {
				return false
			}
			if f.LeaseEndTo != nil && !end.Before(*f.LeaseEndTo) {
				return false
			}
		}
		return true
	})
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	defer s.lock(ctx)()
	if !has(s, db.UsersCollection, user.ID) {
		return apperr.NotFound("user")
	}
	now := time.Now()
	user.Email = normalizeEmail(user.Email)
	if taken, err := s.emailTaken(user.Email, user.ID); err != nil {
		return err
	} else if taken {
		return db.ErrDuplicateKey
	}
	user.UpdatedAt = now
	user.RefreshLease(now)
	return put(s, db.UsersCollection, user.ID, user)
}

func (s *Store) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	u, ok, err := get[models.User](s, db.UsersCollection, id)
	if err != nil || !ok {
		return err
	}
	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	return put(s, db.UsersCollection, id, u)
}

func (s *Store) InsertApartment(ctx context.Context, apartment *models.Apartment) error {
	defer s.lock(ctx)()
	if apartment.ID.IsZero() {
		apartment.ID = primitive.NewObjectID()
	}
	dups, err := scan(s, db.ApartmentsCollection, func(a *models.Apartment) bool {
		return a.UnitNumber == apartment.UnitNumber
	})
	if err != nil {
		return err
	}
	if len(dups) > 0 || has(s, db.ApartmentsCollection, apartment.ID) {
		return db.ErrDuplicateKey
	}
	now := time.Now()
	apartment.CreatedAt = now
	apartment.UpdatedAt = now
	return put(s, db.ApartmentsCollection, apartment.ID, apartment)
}

func (s *Store) FindApartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Apartment, error) {
	defer s.lock(ctx)()
	a, ok, err := get[models.Apartment](s, db.ApartmentsCollection, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("apartment")
	}
	return a, nil
}

func (s *Store) FindApartments(ctx context.Context, f db.ApartmentFilter) ([]models.Apartment, error) {
	defer s.lock(ctx)()
	out, err := scan(s, db.ApartmentsCollection, func(a *models.Apartment) bool {
		if f.IsOccupied != nil && a.IsOccupied != *f.IsOccupied {
			return false
		}
		if f.Building != "" && a.Building != f.Building {
			return false
		}
		return f.Type == "" || a.Type == f.Type
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Building != out[j].Building {
			return out[i].Building < out[j].Building
		}
		return out[i].UnitNumber < out[j].UnitNumber
	})
	return out, nil
}

func (s *Store) UpdateApartment(ctx context.Context, apartment *models.Apartment) error {
	defer s.lock(ctx)()
	if !has(s, db.ApartmentsCollection, apartment.ID) {
		return apperr.NotFound("apartment")
	}
	dups, err := scan(s, db.ApartmentsCollection, func(a *models.Apartment) bool {
		return a.UnitNumber == apartment.UnitNumber && a.ID != apartment.ID
	})
	if err != nil {
		return err
	}
	if len(dups) > 0 {
		return db.ErrDuplicateKey
	}
	apartment.UpdatedAt = time.Now()
	return put(s, db.ApartmentsCollection, apartment.ID, apartment)
}

func (s *Store) DeleteApartment(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	if !has(s, db.ApartmentsCollection, id) {
		return apperr.NotFound("apartment")
	}
	delete(s.collection(db.ApartmentsCollection), id)
	return nil
}
