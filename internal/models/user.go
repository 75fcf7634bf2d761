package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserColName = "users"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrDuplicateUser = errors.New("user already exists")

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username       string             `bson:"username" json:"username" validate:"required"`
	Email          string             `bson:"email" json:"email" validate:"required,email"`
	Password       string             `bson:"password" json:"-" validate:"required"`
	FirstName      string             `bson:"firstName" json:"firstName" validate:"required"`
	LastName       string             `bson:"lastName" json:"lastName" validate:"required"`
	PhoneNumber    string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Role           string             `bson:"role" json:"role" validate:"oneof=user admin"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) BeforeCreate(now time.Time) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	return Validate.Struct(u)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate carries a partial update. Password must already be hashed.
type UserUpdate struct {
	Username       *string
	Email          *string
	Password       *string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	ProfilePicture *string
	Role           *string
}

type UserFilter struct {
	// Search matches username, email, first and last name.
	Search string
}

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter, page, size int) ([]*User, int64, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error)
}
