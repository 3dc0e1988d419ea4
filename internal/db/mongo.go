package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-booking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	vehiclesCollection = "vehicles"
	countersCollection = "counters"
	vehicleCounterID   = "vehicle_id"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

var _ VehicleCollection = (*MongoVehicleCollection)(nil)

// MongoVehicleCollection stores vehicles in MongoDB. Integer ids come from a
// counters collection.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
	Counters   *mongo.Collection
}

// NewMongoVehicleCollection wires the vehicle and counter collections of
// database and makes sure the plate uniqueness index exists.
func NewMongoVehicleCollection(ctx context.Context, database *mongo.Database) (*MongoVehicleCollection, error) {
	c := &MongoVehicleCollection{
		Collection: database.Collection(vehiclesCollection),
		Counters:   database.Collection(countersCollection),
	}
	if err := c.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// EnsureIndexes creates the unique index on license_plate_number.
func (c *MongoVehicleCollection) EnsureIndexes(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "license_plate_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("license_plate_number_unique"),
	})
	if err != nil {
		return fmt.Errorf("create plate index: %w", err)
	}
	return nil
}

func (c *MongoVehicleCollection) nextID(ctx context.Context) (int64, error) {
	if c.Counters == nil {
		return 0, fmt.Errorf("mongo counters collection is nil")
	}
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": vehicleCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next vehicle id: %w", err)
	}
	return counter.Seq, nil
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	id, err := c.nextID(ctx)
	if err != nil {
		return nil, err
	}
	v.ID = id
	if _, err := c.Collection.InsertOne(ctx, v); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrDuplicatePlate
		}
		return nil, err
	}
	return &v, nil
}

// FindVehicles returns all vehicles ordered by id.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// FindVehicleByPlate finds a vehicle by its license plate.
func (c *MongoVehicleCollection) FindVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return c.findOne(ctx, bson.M{"license_plate_number": plate})
}

func (c *MongoVehicleCollection) findOne(ctx context.Context, filter bson.M) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var vehicle models.Vehicle
	err := c.Collection.FindOne(ctx, filter).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrVehicleNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

// UpdateVehicle sets the supplied attributes and the availability timestamp.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, id int64, attrs models.VehicleAttributes, at time.Time) (*models.Vehicle, error) {
	set := bson.M{"available_from": at}
	if attrs.FuelType != nil {
		set["fuel_type"] = *attrs.FuelType
	}
	if attrs.Range != nil {
		set["range"] = *attrs.Range
	}
	if attrs.Distance != nil {
		set["distance"] = *attrs.Distance
	}
	if attrs.Seats != nil {
		set["seats"] = *attrs.Seats
	}
	if attrs.CarBrand != nil {
		set["car_brand"] = *attrs.CarBrand
	}
	if attrs.DriverName != nil {
		set["driver_name"] = *attrs.DriverName
	}
	if attrs.OnRoute != nil {
		set["on_route"] = *attrs.OnRoute
	}
	return c.findOneAndSet(ctx, bson.M{"_id": id}, set)
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id int64) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return models.ErrVehicleNotFound
	}
	return nil
}

// RefreshIdleVehicles stamps every idle vehicle with at.
func (c *MongoVehicleCollection) RefreshIdleVehicles(ctx context.Context, at time.Time) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.UpdateMany(ctx,
		bson.M{"on_route": false},
		bson.M{"$set": bson.M{"available_from": at}},
	)
	return err
}

// MarkOnRoute flips an idle vehicle to on route. The on_route filter makes
// the check and the write one document-level atomic operation.
func (c *MongoVehicleCollection) MarkOnRoute(ctx context.Context, plate string, until time.Time) (*models.Vehicle, error) {
	v, err := c.findOneAndSet(ctx,
		bson.M{"license_plate_number": plate, "on_route": false},
		bson.M{"on_route": true, "available_from": until},
	)
	if !errors.Is(err, models.ErrVehicleNotFound) {
		return v, err
	}
	if _, err := c.FindVehicleByPlate(ctx, plate); err != nil {
		return nil, err
	}
	return nil, models.ErrVehicleOnRoute
}

// MarkIdle takes a vehicle off route.
func (c *MongoVehicleCollection) MarkIdle(ctx context.Context, plate string, at time.Time) (*models.Vehicle, error) {
	return c.findOneAndSet(ctx,
		bson.M{"license_plate_number": plate},
		bson.M{"on_route": false, "available_from": at},
	)
}

func (c *MongoVehicleCollection) findOneAndSet(ctx context.Context, filter, set bson.M) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var vehicle models.Vehicle
	err := c.Collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrVehicleNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}
