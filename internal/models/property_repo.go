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

func (mdb *MongodbRepo) CreateProperty(ctx context.Context, property *Property) (*Property, error) {
	if err := property.BeforeCreate(time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	col, err := mdb.GetCollection(ctx, PropertyColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, property); err != nil {
		return nil, fmt.Errorf("error inserting property: %w", err)
	}
	return property, nil
}

func (mdb *MongodbRepo) GetPropertyByID(ctx context.Context, id primitive.ObjectID) (*Property, error) {
	col, err := mdb.GetCollection(ctx, PropertyColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var property Property
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&property); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding property: %w", err)
	}
	return &property, nil
}

func propertyFilterDoc(filter PropertyFilter) bson.M {
	doc := bson.M{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		doc["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"city": re},
		}
	}
	if filter.PropertyType != "" {
		doc["propertyType"] = filter.PropertyType
	}
	if filter.BHK != "" {
		doc["bhk"] = filter.BHK
	}
	return doc
}

func (mdb *MongodbRepo) ListProperties(ctx context.Context, filter PropertyFilter, page, size int) ([]*Property, int64, error) {
	col, err := mdb.GetCollection(ctx, PropertyColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	query := propertyFilterDoc(filter)
	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting properties: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding properties: %w", err)
	}
	defer cursor.Close(ctx)

	properties := make([]*Property, 0, size)
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, 0, fmt.Errorf("error decoding properties: %w", err)
	}
	return properties, total, nil
}

func (mdb *MongodbRepo) UpdateProperty(ctx context.Context, id primitive.ObjectID, update PropertyUpdate) (*Property, error) {
	if err := Validate.Struct(update); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.PropertyType != nil {
		set["propertyType"] = *update.PropertyType
	}
	if update.BHK != nil {
		set["bhk"] = *update.BHK
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Address != nil {
		set["address"] = *update.Address
	}
	if update.City != nil {
		set["city"] = *update.City
	}
	if update.PropertyImages != nil {
		set["propertyImages"] = update.PropertyImages
	}

	col, err := mdb.GetCollection(ctx, PropertyColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var property Property
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&property); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error updating property: %w", err)
	}
	return &property, nil
}

func (mdb *MongodbRepo) DeleteProperty(ctx context.Context, id primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(ctx, PropertyColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("error deleting property: %w", err)
	}
	return res.DeletedCount > 0, nil
}
