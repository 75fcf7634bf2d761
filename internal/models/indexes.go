package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		BookingColName: {
			// One PENDING or CONFIRMED booking per user and property.
			{
				Keys: bson.D{
					{Key: "user", Value: 1},
					{Key: "property", Value: 1},
				},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"active": true}).
					SetName(bookingActiveIndex),
			},
			// At most one CONFIRMED booking per property.
			{
				Keys: bson.D{{Key: "property", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": BookingConfirmed}).
					SetName(bookingConfirmedIndex),
			},
			{
				Keys: bson.D{
					{Key: "user", Value: 1},
					{Key: "createdAt", Value: -1},
				},
				Options: options.Index().SetName("booking_user_created_idx"),
			},
			{
				Keys: bson.D{
					{Key: "status", Value: 1},
					{Key: "createdAt", Value: -1},
				},
				Options: options.Index().SetName("booking_status_created_idx"),
			},
		},
		UserColName: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("users_email_unique"),
			},
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("users_username_unique"),
			},
		},
		FavouriteColName: {
			{
				Keys: bson.D{
					{Key: "user", Value: 1},
					{Key: "property", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("favourites_user_property_unique"),
			},
		},
		PropertyColName: {
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("properties_created_idx"),
			},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. The booking
// uniqueness indexes are what make concurrent create and confirm safe.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	for colName, indexes := range indexModels() {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %w", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating %s indexes: %w", colName, err)
		}
	}
	return nil
}
