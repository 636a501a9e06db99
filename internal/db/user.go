package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	user.RefreshLease(now)

	_, err := c.Collection.InsertOne(ctx, user)
	return writeErr(err)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// FindUsers finds users matching filter
func (c *MongoUserCollection) FindUsers(ctx context.Context, filter UserFilter) ([]models.User, error) {
	return findAll[models.User](ctx, c.Collection, userQuery(filter), newestFirst())
}

func userQuery(f UserFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.IsActive != nil {
		q["is_active"] = *f.IsActive
	}
	if !f.IncludeDeleted {
		q["is_deleted"] = bson.M{"$ne": true}
	}
	if f.ApartmentID != nil {
		q["tenant_info.apartment_id"] = *f.ApartmentID
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
			bson.M{"tenant_info.room_number": pattern},
		}
	}
	if f.LeaseEndFrom != nil || f.LeaseEndTo != nil {
		r := bson.M{}
		if f.LeaseEndFrom != nil {
			r["$gte"] = *f.LeaseEndFrom
		}
		if f.LeaseEndTo != nil {
			r["$lt"] = *f.LeaseEndTo
		}
		q["tenant_info.lease_end_date"] = r
	}
	return q
}

// UpdateUser replaces a user document
func (c *MongoUserCollection) UpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.RefreshLease(now)

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return writeErr(err)
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "user")
	}
	return nil
}

// UpdateLastLogin updates the last login time for a user
func (c *MongoUserCollection) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}
