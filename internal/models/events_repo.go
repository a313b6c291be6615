package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventsRepo interface {
	CreateEvent(ctx context.Context, event *Event) (*Event, error)
	GetEventByID(ctx context.Context, id primitive.ObjectID) (*Event, error)
	// SaveEvent replaces the stored event only if its version still equals
	// expectedVersion, and returns ErrWriteConflict otherwise.
	SaveEvent(ctx context.Context, event *Event, expectedVersion int64) error
	DeleteEvent(ctx context.Context, id primitive.ObjectID) error
	ListEvents(ctx context.Context, filter EventFilter, offset, limit int) ([]*Event, int, error)
}

// EventFilter narrows ListEvents. Zero values mean "no constraint".
type EventFilter struct {
	PublicOnly     bool
	Organizer      primitive.ObjectID
	ApprovalStatus ApprovalStatus
	EventType      EventType
	Featured       *bool
	Search         string
	StartsAfter    *time.Time
	Bounds         *BoundingBox
	NewestFirst    bool
}

// Matches applies the filter to a single event in memory.
func (f EventFilter) Matches(e *Event) bool {
	if f.PublicOnly && !e.IsPubliclyVisible() {
		return false
	}
	if !f.Organizer.IsZero() && e.Organizer != f.Organizer {
		return false
	}
	if f.ApprovalStatus != "" && e.ApprovalStatus != f.ApprovalStatus {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Featured != nil && e.Featured != *f.Featured {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Description), q) {
			return false
		}
	}
	if f.StartsAfter != nil && e.Date.Before(*f.StartsAfter) {
		return false
	}
	if f.Bounds != nil && !f.Bounds.Contains(e.Location.Coordinates) {
		return false
	}
	return true
}

func (f EventFilter) toBSON() bson.M {
	q := bson.M{}
	if f.PublicOnly {
		q["status"] = EventStatusPublished
		q["approvalStatus"] = ApprovalApproved
	}
	if !f.Organizer.IsZero() {
		q["organizer"] = f.Organizer
	}
	if f.ApprovalStatus != "" {
		q["approvalStatus"] = f.ApprovalStatus
	}
	if f.EventType != "" {
		q["eventType"] = f.EventType
	}
	if f.Featured != nil {
		q["featured"] = *f.Featured
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	if f.StartsAfter != nil {
		q["date"] = bson.M{"$gte": *f.StartsAfter}
	}
	if f.Bounds != nil {
		q["location.coordinates.lat"] = bson.M{"$gte": f.Bounds.MinLat, "$lte": f.Bounds.MaxLat}
		q["location.coordinates.lng"] = bson.M{"$gte": f.Bounds.MinLng, "$lte": f.Bounds.MaxLng}
	}
	return q
}

func (f EventFilter) sort() bson.D {
	if f.NewestFirst {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}
}

// EnsureEventIndexes creates the indexes used by the event queries.
func (mdb *MongodbRepo) EnsureEventIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	indexes := []mongo.IndexModel{
		// public listing
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "approvalStatus", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("status_approval_date_idx"),
		},
		// moderation queue
		{
			Keys: bson.D{
				{Key: "approvalStatus", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("approval_created_idx"),
		},
		{
			Keys: bson.D{
				{Key: "organizer", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("organizer_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "participatingTrucks.truck", Value: 1}},
			Options: options.Index().SetName("participating_truck_idx"),
		},
		{
			Keys: bson.D{
				{Key: "location.coordinates.lat", Value: 1},
				{Key: "location.coordinates.lng", Value: 1},
			},
			Options: options.Index().SetName("location_lat_lng_idx"),
		},
	}

	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("error creating event indexes: %w", err)
	}

	trucks, err := mdb.GetCollection(ctx, FoodTrucksColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = trucks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}},
		Options: options.Index().SetName("owner_idx"),
	})
	if err != nil {
		return fmt.Errorf("error creating foodtruck indexes: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.ParticipatingTrucks == nil {
		event.ParticipatingTrucks = []ParticipatingTruck{}
	}
	event.Version = 1

	if _, err := col.InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("error inserting event: %w", err)
	}
	return event, nil
}

func (mdb *MongodbRepo) GetEventByID(ctx context.Context, id primitive.ObjectID) (*Event, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var event Event
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewNotFound("Event")
		}
		return nil, fmt.Errorf("error finding event: %w", err)
	}
	return &event, nil
}

func (mdb *MongodbRepo) SaveEvent(ctx context.Context, event *Event, expectedVersion int64) error {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	filter := bson.M{"_id": event.ID, "version": expectedVersion}
	if expectedVersion == 0 {
		// documents written before versioning carry no version field
		filter["version"] = bson.M{"$in": bson.A{0, nil}}
	}

	event.Version = expectedVersion + 1
	res, err := col.ReplaceOne(ctx, filter, event)
	if err != nil {
		event.Version = expectedVersion
		return fmt.Errorf("error saving event: %w", err)
	}
	if res.MatchedCount == 0 {
		event.Version = expectedVersion
		return ErrWriteConflict
	}
	return nil
}

func (mdb *MongodbRepo) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting event: %w", err)
	}
	if res.DeletedCount == 0 {
		return NewNotFound("Event")
	}
	return nil
}

func (mdb *MongodbRepo) ListEvents(ctx context.Context, filter EventFilter, offset, limit int) ([]*Event, int, error) {
	col, err := mdb.GetCollection(ctx, EventsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	q := filter.toBSON()
	total, err := col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting events: %w", err)
	}

	opts := options.Find().
		SetSort(filter.sort()).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*Event, 0, limit)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("error decoding events: %w", err)
	}
	return events, int(total), nil
}
