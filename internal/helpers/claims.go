package helpers

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ID returns the user id, falling back to the subject claim for tokens
// issued by an external provider.
func (c *Claims) ID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

func (c *Claims) ObjectID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.ID())
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("token subject is not a valid user id: %w", err)
	}
	return id, nil
}

func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

func (c *Claims) IsOwner(userID string) bool {
	return c.ID() == userID
}
