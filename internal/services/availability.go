package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/models"
)

// AvailabilityService derives whether a property is rented from its
// bookings. Results are never cached.
type AvailabilityService struct {
	bookingRepo models.BookingRepo
}

func NewAvailabilityService(bookingRepo models.BookingRepo) *AvailabilityService {
	return &AvailabilityService{bookingRepo: bookingRepo}
}

func (as *AvailabilityService) IsRented(ctx context.Context, propertyID primitive.ObjectID) (bool, error) {
	rented, err := as.bookingRepo.HasConfirmedBooking(ctx, propertyID)
	if err != nil {
		return false, apperror.Internal("Internal Server Error", err)
	}
	return rented, nil
}

// Annotate sets IsRented on every property with one query.
func (as *AvailabilityService) Annotate(ctx context.Context, properties []*models.Property) error {
	if len(properties) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}
	rented, err := as.bookingRepo.ConfirmedPropertyIDs(ctx, ids)
	if err != nil {
		return apperror.Internal("Internal Server Error", err)
	}
	for _, p := range properties {
		p.SetRented(rented[p.ID])
	}
	return nil
}
