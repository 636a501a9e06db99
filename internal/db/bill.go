package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBillCollection implements BillCollection for MongoDB
type MongoBillCollection struct {
	Collection *mongo.Collection
}

func (c *MongoBillCollection) InsertBill(ctx context.Context, bill *models.UtilityBill) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if bill.ID.IsZero() {
		bill.ID = primitive.NewObjectID()
	}
	bill.CreatedAt = now
	bill.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, bill)
	return writeErr(err)
}

func (c *MongoBillCollection) FindBillByID(ctx context.Context, id primitive.ObjectID) (*models.UtilityBill, error) {
	var bill models.UtilityBill
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&bill); err != nil {
		return nil, notFound(err, "bill")
	}
	return &bill, nil
}

func (c *MongoBillCollection) FindBills(ctx context.Context, filter BillFilter) ([]models.UtilityBill, error) {
	q := bson.M{}
	if filter.TenantID != nil {
		q["tenant_id"] = *filter.TenantID
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.DueBefore != nil {
		q["due_date"] = bson.M{"$lt": *filter.DueBefore}
	}
	if filter.PeriodStartFrom != nil || filter.PeriodStartTo != nil {
		r := bson.M{}
		if filter.PeriodStartFrom != nil {
			r["$gte"] = *filter.PeriodStartFrom
		}
		if filter.PeriodStartTo != nil {
			r["$lt"] = *filter.PeriodStartTo
		}
		q["billing_period.start_date"] = r
	}
	if filter.PeriodEndAfter != nil {
		q["billing_period.end_date"] = bson.M{"$gt": *filter.PeriodEndAfter}
	}
	return findAll[models.UtilityBill](ctx, c.Collection, q, newestFirst())
}

func (c *MongoBillCollection) BillNumberExists(ctx context.Context, number string) (bool, error) {
	n, err := c.Collection.CountDocuments(ctx, bson.M{"bill_number": number}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateBill replaces the bill only if its stored status still equals expected.
func (c *MongoBillCollection) UpdateBill(ctx context.Context, bill *models.UtilityBill, expected models.BillStatus) error {
	bill.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": bill.ID, "status": expected}, bill)
	if err != nil {
		return writeErr(err)
	}
	if result.MatchedCount == 0 {
		if _, err := c.FindBillByID(ctx, bill.ID); err != nil {
			return err
		}
		return apperr.Conflict("bill %s is no longer %s", bill.BillNumber, expected)
	}
	return nil
}

func (c *MongoBillCollection) DeleteBill(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "bill")
	}
	return nil
}

// MongoCounterCollection stores named sequences as {_id: key, seq: n}.
type MongoCounterCollection struct {
	Collection *mongo.Collection
}

// NextSequence atomically increments and returns the sequence for key.
func (c *MongoCounterCollection) NextSequence(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return doc.Seq, nil
}
