package services

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/models"
)

const DefaultAdminPageSize = 10

type AdminBookingService struct {
	bookingRepo models.BookingRepo
	publisher   events.Publisher
	logger      *slog.Logger
}

func NewAdminBookingService(bookingRepo models.BookingRepo, publisher events.Publisher, logger *slog.Logger) *AdminBookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminBookingService{
		bookingRepo: bookingRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

type AdminBookingsQuery struct {
	Status models.BookingStatus
	PageRequest
}

func (as *AdminBookingService) ListBookings(ctx context.Context, caller CallerContext, q AdminBookingsQuery) ([]*models.Booking, models.Pagination, error) {
	if !caller.IsAdmin() {
		return nil, models.Pagination{}, apperror.Forbidden("Forbidden, Admins only")
	}
	pr := q.PageRequest.normalize(DefaultAdminPageSize)

	bookings, total, err := as.bookingRepo.ListBookings(ctx, models.BookingFilter{Status: q.Status}, pr.Page, pr.Size)
	if err != nil {
		return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
	}
	return bookings, models.NewPagination(pr.Page, pr.Size, total), nil
}

// UpdateStatus sets any valid status. Confirming is refused while another
// booking on the same property is CONFIRMED; re-confirming the booking that
// already holds the property is allowed.
func (as *AdminBookingService) UpdateStatus(ctx context.Context, caller CallerContext, bookingID primitive.ObjectID, status models.BookingStatus) (*models.Booking, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	if !status.IsValid() {
		return nil, apperror.Validation("Invalid status value")
	}

	booking, err := as.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if booking == nil {
		return nil, apperror.NotFound(MsgBookingNotFound)
	}

	if status == models.BookingConfirmed {
		other, err := as.bookingRepo.FindConfirmedBooking(ctx, booking.Property.ID, bookingID)
		if err != nil {
			return nil, apperror.Internal("Internal Server Error", err)
		}
		if other != nil {
			return nil, apperror.Conflict(MsgPropertyAlreadyTaken)
		}
	}

	updated, err := as.bookingRepo.TransitionBookingStatus(ctx, bookingID, booking.Status, status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPropertyAlreadyRented):
			return nil, apperror.Conflict(MsgPropertyAlreadyTaken)
		case errors.Is(err, models.ErrActiveBookingExists):
			return nil, apperror.Conflict(MsgUserHasActiveBooking)
		}
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if updated == nil {
		return nil, apperror.Conflict(MsgBookingModified)
	}

	as.logger.Info("booking status changed",
		"booking_id", bookingID.Hex(),
		"from", string(booking.Status),
		"to", string(status),
		"admin_id", caller.ID.Hex(),
	)
	publishBookingEvent(ctx, as.publisher, as.logger, events.BookingStatusChanged, updated, booking.Status)
	return updated, nil
}
