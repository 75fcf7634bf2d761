package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const FavouriteColName = "favourites"

type Favourite struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Property  Ref[Property]      `bson:"property" json:"property"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type FavouriteRepo interface {
	AddToFavourites(ctx context.Context, userID, propertyID primitive.ObjectID) (*Favourite, error)
	// RemoveFromFavourites reports whether a favourite was removed.
	RemoveFromFavourites(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error)
	IsFavourited(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error)
	GetFavouritesByUserID(ctx context.Context, userID primitive.ObjectID, page, size int) ([]*Favourite, int64, error)
}

// AddToFavourites upserts so that adding twice keeps a single document.
func (mdb *MongodbRepo) AddToFavourites(ctx context.Context, userID, propertyID primitive.ObjectID) (*Favourite, error) {
	col, err := mdb.GetCollection(ctx, FavouriteColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	now := time.Now().UTC()
	filter := bson.M{"user": userID, "property": propertyID}

	update := bson.M{
		"$set": bson.M{
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result Favourite
	err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("error upserting favourite: %w", err)
	}

	return &result, nil
}

func (mdb *MongodbRepo) RemoveFromFavourites(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, FavouriteColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"user": userID, "property": propertyID})
	if err != nil {
		return false, fmt.Errorf("error removing favourite: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (mdb *MongodbRepo) IsFavourited(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, FavouriteColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	count, err := col.CountDocuments(ctx,
		bson.M{"user": userID, "property": propertyID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("error checking favourite: %w", err)
	}
	return count > 0, nil
}

func (mdb *MongodbRepo) GetFavouritesByUserID(ctx context.Context, userID primitive.ObjectID, page, size int) ([]*Favourite, int64, error) {
	col, err := mdb.GetCollection(ctx, FavouriteColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	filter := bson.M{"user": userID}
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting favourites: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * size)}},
		{{Key: "$limit", Value: int64(size)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         PropertyColName,
			"localField":   "property",
			"foreignField": "_id",
			"as":           "propertyDoc",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"property": arrayFirstOr("$propertyDoc", "$property"),
		}}},
		{{Key: "$project", Value: bson.M{"propertyDoc": 0}}},
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding favourites: %w", err)
	}
	defer cursor.Close(ctx)

	favourites := make([]*Favourite, 0, size)
	for cursor.Next(ctx) {
		var fav Favourite
		if err := cursor.Decode(&fav); err != nil {
			return nil, 0, fmt.Errorf("error decoding favourite: %w", err)
		}
		favourites = append(favourites, &fav)
	}

	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return favourites, total, nil
}
