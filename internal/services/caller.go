package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/models"
)

// CallerContext is the resolved identity of whoever is performing an
// operation. Handlers build it from the verified token.
type CallerContext struct {
	ID   primitive.ObjectID
	Role string
}

func (c CallerContext) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func (c CallerContext) IsAnonymous() bool {
	return c.ID.IsZero()
}
