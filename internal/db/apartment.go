package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoApartmentCollection implements ApartmentCollection for MongoDB
type MongoApartmentCollection struct {
	Collection *mongo.Collection
}

// InsertApartment inserts an apartment; a duplicate unit number is a conflict.
func (c *MongoApartmentCollection) InsertApartment(ctx context.Context, apartment *models.Apartment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if apartment.ID.IsZero() {
		apartment.ID = primitive.NewObjectID()
	}
	apartment.CreatedAt = now
	apartment.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, apartment)
	return writeErr(err)
}

func (c *MongoApartmentCollection) FindApartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&apartment); err != nil {
		return nil, notFound(err, "apartment")
	}
	return &apartment, nil
}

// FindApartments lists apartments ordered by building then unit number.
func (c *MongoApartmentCollection) FindApartments(ctx context.Context, filter ApartmentFilter) ([]models.Apartment, error) {
	q := bson.M{}
	if filter.IsOccupied != nil {
		q["is_occupied"] = *filter.IsOccupied
	}
	if filter.Building != "" {
		q["building"] = filter.Building
	}
	if filter.Type != "" {
		q["type"] = filter.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "building", Value: 1}, {Key: "unit_number", Value: 1}})
	return findAll[models.Apartment](ctx, c.Collection, q, opts)
}

func (c *MongoApartmentCollection) UpdateApartment(ctx context.Context, apartment *models.Apartment) error {
	apartment.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": apartment.ID}, apartment)
	if err != nil {
		return writeErr(err)
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "apartment")
	}
	return nil
}

func (c *MongoApartmentCollection) DeleteApartment(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "apartment")
	}
	return nil
}
