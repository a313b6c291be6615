package models

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FoodTruckRepo interface {
	GetTruckByID(ctx context.Context, id primitive.ObjectID) (*FoodTruck, error)
	GetTrucksByOwner(ctx context.Context, owner primitive.ObjectID) ([]*FoodTruck, error)
}

func (mdb *MongodbRepo) GetTruckByID(ctx context.Context, id primitive.ObjectID) (*FoodTruck, error) {
	col, err := mdb.GetCollection(ctx, FoodTrucksColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var truck FoodTruck
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&truck); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFound("Food truck")
		}
		return nil, fmt.Errorf("error finding food truck: %w", err)
	}
	return &truck, nil
}

func (mdb *MongodbRepo) GetTrucksByOwner(ctx context.Context, owner primitive.ObjectID) ([]*FoodTruck, error) {
	col, err := mdb.GetCollection(ctx, FoodTrucksColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "owner": 1, "name": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := col.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding food trucks: %w", err)
	}
	defer cursor.Close(ctx)

	var trucks []*FoodTruck
	if err := cursor.All(ctx, &trucks); err != nil {
		return nil, fmt.Errorf("error decoding food trucks: %w", err)
	}
	return trucks, nil
}
