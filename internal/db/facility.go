package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/apartment-management/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoMaintenanceCollection implements MaintenanceCollection for MongoDB
type MongoMaintenanceCollection struct {
	Collection *mongo.Collection
}

// InsertMaintenance inserts a maintenance request into the collection.
func (c *MongoMaintenanceCollection) InsertMaintenance(ctx context.Context, req *models.MaintenanceRequest) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, req)
	return err
}

// FindMaintenanceByID finds a maintenance request by its ID.
func (c *MongoMaintenanceCollection) FindMaintenanceByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceRequest, error) {
	var req models.MaintenanceRequest
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, notFound(err, "maintenance request")
	}
	return &req, nil
}

// FindMaintenance queries maintenance requests from the collection.
func (c *MongoMaintenanceCollection) FindMaintenance(ctx context.Context, filter MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	q := bson.M{}
	if filter.TenantID != nil {
		q["tenant_id"] = *filter.TenantID
	}
	if filter.AssignedTo != nil {
		q["assigned_to"] = *filter.AssignedTo
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Priority != "" {
		q["priority"] = filter.Priority
	}
	return findAll[models.MaintenanceRequest](ctx, c.Collection, q, newestFirst())
}

// UpdateMaintenance replaces a maintenance request by its ID.
func (c *MongoMaintenanceCollection) UpdateMaintenance(ctx context.Context, req *models.MaintenanceRequest) error {
	req.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": req.ID}, req)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "maintenance request")
	}
	return nil
}

// MongoLeaveCollection implements LeaveCollection for MongoDB
type MongoLeaveCollection struct {
	Collection *mongo.Collection
}

func (c *MongoLeaveCollection) InsertLeave(ctx context.Context, req *models.LeaveRequest) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, req)
	return err
}

func (c *MongoLeaveCollection) FindLeaveByID(ctx context.Context, id primitive.ObjectID) (*models.LeaveRequest, error) {
	var req models.LeaveRequest
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, notFound(err, "leave request")
	}
	return &req, nil
}

func (c *MongoLeaveCollection) FindLeaves(ctx context.Context, filter LeaveFilter) ([]models.LeaveRequest, error) {
	q := bson.M{}
	if filter.WorkerID != nil {
		q["worker_id"] = *filter.WorkerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	return findAll[models.LeaveRequest](ctx, c.Collection, q, newestFirst())
}

func (c *MongoLeaveCollection) UpdateLeave(ctx context.Context, req *models.LeaveRequest) error {
	req.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": req.ID}, req)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "leave request")
	}
	return nil
}

// MongoReservationCollection implements ReservationCollection for MongoDB
type MongoReservationCollection struct {
	Collection *mongo.Collection
}

func (c *MongoReservationCollection) InsertReservation(ctx context.Context, res *models.RooftopReservation) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	res.CreatedAt = time.Now()
	res.UpdatedAt = time.Now()
	_, err := c.Collection.InsertOne(ctx, res)
	return err
}

func (c *MongoReservationCollection) FindReservationByID(ctx context.Context, id primitive.ObjectID) (*models.RooftopReservation, error) {
	var res models.RooftopReservation
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, notFound(err, "reservation")
	}
	return &res, nil
}

// FindReservations filters by tenant, status and the calendar day of Date.
func (c *MongoReservationCollection) FindReservations(ctx context.Context, filter ReservationFilter) ([]models.RooftopReservation, error) {
	q := bson.M{}
	if filter.TenantID != nil {
		q["tenant_id"] = *filter.TenantID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.TimeSlot != "" {
		q["time_slot"] = filter.TimeSlot
	}
	if filter.Date != nil {
		from, to := DayRange(*filter.Date)
		q["reservation_date"] = bson.M{"$gte": from, "$lt": to}
	}
	return findAll[models.RooftopReservation](ctx, c.Collection, q, newestFirst())
}

func (c *MongoReservationCollection) UpdateReservation(ctx context.Context, res *models.RooftopReservation) error {
	res.UpdatedAt = time.Now()
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": res.ID}, res)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, "reservation")
	}
	return nil
}
