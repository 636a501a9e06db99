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

// MongoBeverageCollection implements BeverageCollection for MongoDB
type MongoBeverageCollection struct {
	Collection *mongo.Collection
}

func (c *MongoBeverageCollection) InsertBeverage(ctx context.Context, beverage *models.Beverage) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if beverage.ID.IsZero() {
		beverage.ID = primitive.NewObjectID()
	}
	beverage.CreatedAt = now
	beverage.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, beverage)
	return writeErr(err)
}

func (c *MongoBeverageCollection) FindBeverageByID(ctx context.Context, id primitive.ObjectID) (*models.Beverage, error) {
	var beverage models.Beverage
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&beverage); err != nil {
		return nil, notFound(err, "beverage")
	}
	return &beverage, nil
}

func (c *MongoBeverageCollection) FindBeverages(ctx context.Context, availableOnly bool) ([]models.Beverage, error) {
	q := bson.M{}
	if availableOnly {
		q["is_available"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	return findAll[models.Beverage](ctx, c.Collection, q, opts)
}

func (c *MongoBeverageCollection) UpdateBeverage(ctx context.Context, beverage *models.Beverage) error {
	beverage.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": beverage.ID}, beverage)
	if err != nil {
		return writeErr(err)
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "beverage")
	}
	return nil
}

func (c *MongoBeverageCollection) DeleteBeverage(ctx context.Context, id primitive.ObjectID) error {
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "beverage")
	}
	return nil
}

// MongoCartCollection implements CartCollection for MongoDB
type MongoCartCollection struct {
	Collection *mongo.Collection
}

// InsertCart inserts a cart. The partial unique index on tenant_id rejects a
// second active cart for the same tenant.
func (c *MongoCartCollection) InsertCart(ctx context.Context, cart *models.BeverageCart) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	now := time.Now()
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	cart.CreatedAt = now
	cart.UpdatedAt = now
	_, err := c.Collection.InsertOne(ctx, cart)
	return writeErr(err)
}

func (c *MongoCartCollection) FindActiveCart(ctx context.Context, tenantID primitive.ObjectID) (*models.BeverageCart, error) {
	var cart models.BeverageCart
	err := c.Collection.FindOne(ctx, bson.M{"tenant_id": tenantID, "status": models.CartActive}).Decode(&cart)
	if err != nil {
		return nil, notFound(err, "active cart")
	}
	return &cart, nil
}

func (c *MongoCartCollection) FindCarts(ctx context.Context, filter CartFilter) ([]models.BeverageCart, error) {
	q := bson.M{}
	if filter.TenantID != nil {
		q["tenant_id"] = *filter.TenantID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	return findAll[models.BeverageCart](ctx, c.Collection, q, newestFirst())
}

func (c *MongoCartCollection) UpdateCart(ctx context.Context, cart *models.BeverageCart) error {
	cart.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart)
	if err != nil {
		return writeErr(err)
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "cart")
	}
	return nil
}

// MongoConsumptionCollection implements ConsumptionCollection for MongoDB
type MongoConsumptionCollection struct {
	Collection *mongo.Collection
}

// InsertConsumptions bulk inserts records, assigning ids in place.
func (c *MongoConsumptionCollection) InsertConsumptions(ctx context.Context, records []models.BeverageConsumption) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(records))
	for i := range records {
		if records[i].ID.IsZero() {
			records[i].ID = primitive.NewObjectID()
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
		docs = append(docs, records[i])
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return writeErr(err)
}

func (c *MongoConsumptionCollection) FindConsumptions(ctx context.Context, filter ConsumptionFilter) ([]models.BeverageConsumption, error) {
	opts := options.Find().SetSort(bson.D{{Key: "consumption_date", Value: -1}})
	return findAll[models.BeverageConsumption](ctx, c.Collection, consumptionQuery(filter), opts)
}

func consumptionQuery(f ConsumptionFilter) bson.M {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if f.BillID != nil {
		q["utility_bill_id"] = *f.BillID
	}
	if f.PaymentStatus != "" {
		q["payment_status"] = f.PaymentStatus
	}
	if f.IncludedInBill != nil {
		q["included_in_bill"] = *f.IncludedInBill
	}
	if f.From != nil || f.To != nil {
		r := bson.M{}
		if f.From != nil {
			r["$gte"] = *f.From
		}
		if f.To != nil {
			r["$lt"] = *f.To
		}
		q["consumption_date"] = r
	}
	return q
}

// MarkIncludedInBill flags the records as folded into billID. Only records
// still unbilled match, so a concurrent fold shows up as a short count.
func (c *MongoConsumptionCollection) MarkIncludedInBill(ctx context.Context, ids []primitive.ObjectID, billID primitive.ObjectID, period models.Period) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := c.Collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "included_in_bill": false},
		bson.M{"$set": bson.M{
			"included_in_bill": true,
			"utility_bill_id":  billID,
			"billing_period":   period,
			"updated_at":       time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount != int64(len(ids)) {
		return apperr.Conflict("%d of %d consumption records were already billed", int64(len(ids))-result.ModifiedCount, len(ids))
	}
	return nil
}

func (c *MongoConsumptionCollection) ReleaseFromBill(ctx context.Context, billID primitive.ObjectID) (int64, error) {
	result, err := c.Collection.UpdateMany(ctx,
		bson.M{"utility_bill_id": billID},
		bson.M{
			"$set":   bson.M{"included_in_bill": false, "updated_at": time.Now()},
			"$unset": bson.M{"utility_bill_id": "", "billing_period": ""},
		},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (c *MongoConsumptionCollection) MarkPaidByBill(ctx context.Context, billID primitive.ObjectID) (int64, error) {
	result, err := c.Collection.UpdateMany(ctx,
		bson.M{"utility_bill_id": billID, "payment_status": bson.M{"$ne": models.PaymentPaid}},
		bson.M{"$set": bson.M{"payment_status": models.PaymentPaid, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
