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

const (
	bookingActiveIndex    = "booking_active_user_property_unique"
	bookingConfirmedIndex = "booking_confirmed_property_unique"
)

// bookingDuplicateError maps a duplicate key error raised by one of the
// booking uniqueness indexes onto its sentinel.
func bookingDuplicateError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, bookingConfirmedIndex):
		return ErrPropertyAlreadyRented
	case strings.Contains(msg, bookingActiveIndex):
		return ErrActiveBookingExists
	}
	return fmt.Errorf("duplicate booking: %w", err)
}

func arrayFirstOr(array, fallback string) bson.M {
	return bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{array, 0}}, fallback}}
}

// populateBookingStages resolves property and user references in place.
// A dangling reference is left as the bare id.
func populateBookingStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         PropertyColName,
			"localField":   "property",
			"foreignField": "_id",
			"as":           "propertyDoc",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":     UserColName,
			"let":      bson.M{"userId": "$user"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$userId"}}}},
				bson.M{"$project": bson.M{"username": 1, "email": 1, "firstName": 1, "lastName": 1}},
			},
			"as": "userDoc",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"property": arrayFirstOr("$propertyDoc", "$property"),
			"user":     arrayFirstOr("$userDoc", "$user"),
		}}},
		{{Key: "$project", Value: bson.M{"propertyDoc": 0, "userDoc": 0}}},
	}
}

func (mdb *MongodbRepo) CreateBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	if err := booking.BeforeCreate(time.Now().UTC()); err != nil {
		return nil, err
	}

	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.InsertOne(ctx, booking); err != nil {
		if dup := bookingDuplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("error inserting booking: %w", err)
	}
	return booking, nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$limit", Value: 1}},
	}
	pipeline = append(pipeline, populateBookingStages()...)

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("cursor error: %w", err)
		}
		return nil, nil
	}
	var booking Booking
	if err := cursor.Decode(&booking); err != nil {
		return nil, fmt.Errorf("error decoding booking: %w", err)
	}
	return &booking, nil
}

func bookingFilterDoc(filter BookingFilter) bson.M {
	doc := bson.M{}
	if !filter.UserID.IsZero() {
		doc["user"] = filter.UserID
	}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		doc["message"] = primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
	}
	return doc
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter, page, size int) ([]*Booking, int64, error) {
	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	match := bookingFilterDoc(filter)
	total, err := col.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * size)}},
		{{Key: "$limit", Value: int64(size)}},
	}
	pipeline = append(pipeline, populateBookingStages()...)

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*Booking, 0, size)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, total, nil
}

func (mdb *MongodbRepo) findOneBooking(ctx context.Context, filter bson.M) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	if err := col.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) FindActiveBooking(ctx context.Context, userID, propertyID primitive.ObjectID) (*Booking, error) {
	return mdb.findOneBooking(ctx, bson.M{
		"user":     userID,
		"property": propertyID,
		"status":   bson.M{"$in": bson.A{BookingPending, BookingConfirmed}},
	})
}

func (mdb *MongodbRepo) FindConfirmedBooking(ctx context.Context, propertyID, excludeID primitive.ObjectID) (*Booking, error) {
	filter := bson.M{
		"property": propertyID,
		"status":   BookingConfirmed,
	}
	if !excludeID.IsZero() {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return mdb.findOneBooking(ctx, filter)
}

func (mdb *MongodbRepo) HasConfirmedBooking(ctx context.Context, propertyID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	count, err := col.CountDocuments(ctx,
		bson.M{"property": propertyID, "status": BookingConfirmed},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("error counting confirmed bookings: %w", err)
	}
	return count > 0, nil
}

func (mdb *MongodbRepo) ConfirmedPropertyIDs(ctx context.Context, propertyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	rented := make(map[primitive.ObjectID]bool, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return rented, nil
	}

	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	values, err := col.Distinct(ctx, "property", bson.M{
		"property": bson.M{"$in": propertyIDs},
		"status":   BookingConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing rented properties: %w", err)
	}
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			rented[id] = true
		}
	}
	return rented, nil
}

func (mdb *MongodbRepo) setBookingStatus(ctx context.Context, filter bson.M, status BookingStatus) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"active":    status.IsActive(),
			"updatedAt": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking Booking
	if err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if dup := bookingDuplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("error updating booking status: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status BookingStatus) (*Booking, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, status)
	}
	return mdb.setBookingStatus(ctx, bson.M{"_id": id}, status)
}

func (mdb *MongodbRepo) TransitionBookingStatus(ctx context.Context, id primitive.ObjectID, from, to BookingStatus) (*Booking, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, to)
	}
	return mdb.setBookingStatus(ctx, bson.M{"_id": id, "status": from}, to)
}
