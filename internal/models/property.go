package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const PropertyColName = "properties"

type PropertyType string

const (
	PropertyHouse     PropertyType = "HOUSE"
	PropertyApartment PropertyType = "APARTMENT"
)

var BHKValues = []string{"2BHK", "3BHK", "4BHK+"}

type Property struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title          string             `bson:"title" json:"title" validate:"required,min=5"`
	Description    string             `bson:"description" json:"description" validate:"required,min=20"`
	PropertyType   PropertyType       `bson:"propertyType" json:"propertyType" validate:"required,oneof=HOUSE APARTMENT"`
	BHK            string             `bson:"bhk" json:"bhk" validate:"required,oneof=2BHK 3BHK 4BHK+"`
	Price          float64            `bson:"price" json:"price" validate:"gt=0"`
	Address        string             `bson:"address" json:"address" validate:"required"`
	City           string             `bson:"city" json:"city" validate:"required"`
	PropertyImages []string           `bson:"propertyImages" json:"propertyImages"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`

	// IsRented is derived from bookings on every read and never stored.
	IsRented *bool `bson:"-" json:"isRented,omitempty"`
}

func (p *Property) BeforeCreate(now time.Time) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.PropertyImages == nil {
		p.PropertyImages = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return Validate.Struct(p)
}

func (p *Property) SetRented(rented bool) {
	p.IsRented = &rented
}

// PropertyUpdate carries a partial update; nil fields are left untouched.
type PropertyUpdate struct {
	Title          *string       `json:"title,omitempty" form:"title" validate:"omitempty,min=5"`
	Description    *string       `json:"description,omitempty" form:"description" validate:"omitempty,min=20"`
	PropertyType   *PropertyType `json:"propertyType,omitempty" form:"propertyType" validate:"omitempty,oneof=HOUSE APARTMENT"`
	BHK            *string       `json:"bhk,omitempty" form:"bhk" validate:"omitempty,oneof=2BHK 3BHK 4BHK+"`
	Price          *float64      `json:"price,omitempty" form:"price" validate:"omitempty,gt=0"`
	Address        *string       `json:"address,omitempty" form:"address" validate:"omitempty,min=1"`
	City           *string       `json:"city,omitempty" form:"city" validate:"omitempty,min=1"`
	PropertyImages []string      `json:"propertyImages,omitempty" form:"-"`
}

// Apply copies the set fields onto p.
func (u PropertyUpdate) Apply(p *Property) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.PropertyType != nil {
		p.PropertyType = *u.PropertyType
	}
	if u.BHK != nil {
		p.BHK = *u.BHK
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.City != nil {
		p.City = *u.City
	}
	if u.PropertyImages != nil {
		p.PropertyImages = u.PropertyImages
	}
}

type PropertyFilter struct {
	// Search matches title, description and city case-insensitively.
	Search       string
	PropertyType PropertyType
	BHK          string
}

type PropertyRepo interface {
	CreateProperty(ctx context.Context, property *Property) (*Property, error)
	GetPropertyByID(ctx context.Context, id primitive.ObjectID) (*Property, error)
	ListProperties(ctx context.Context, filter PropertyFilter, page, size int) ([]*Property, int64, error)
	UpdateProperty(ctx context.Context, id primitive.ObjectID, update PropertyUpdate) (*Property, error)
	DeleteProperty(ctx context.Context, id primitive.ObjectID) (bool, error)
}
