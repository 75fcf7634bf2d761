package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/models"
)

const (
	MsgPropertyNotFound     = "Property not found"
	MsgBookingNotFound      = "Booking not found"
	MsgDuplicateBooking     = "You already have a pending or confirmed booking for this property"
	MsgNotBookingOwner      = "You are not authorized to cancel this booking"
	MsgPropertyAlreadyTaken = "Cannot confirm: This property is already rented to another user."
	MsgBookingModified      = "Booking was modified by another request, please retry"
	MsgUserHasActiveBooking = "The user already has a pending or confirmed booking for this property"

	DefaultMyBookingsPageSize = 12
)

type CreateBookingInput struct {
	PropertyID primitive.ObjectID
	Message    string
}

type BookingService struct {
	bookingRepo  models.BookingRepo
	propertyRepo models.PropertyRepo
	publisher    events.Publisher
	logger       *slog.Logger
}

func NewBookingService(bookingRepo models.BookingRepo, propertyRepo models.PropertyRepo, publisher events.Publisher, logger *slog.Logger) *BookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingService{
		bookingRepo:  bookingRepo,
		propertyRepo: propertyRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (bs *BookingService) CreateBooking(ctx context.Context, caller CallerContext, in CreateBookingInput) (*models.Booking, error) {
	if caller.IsAnonymous() {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if in.PropertyID.IsZero() {
		return nil, apperror.Validation("Invalid Property ID")
	}

	property, err := bs.propertyRepo.GetPropertyByID(ctx, in.PropertyID)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if property == nil {
		return nil, apperror.NotFound(MsgPropertyNotFound)
	}

	existing, err := bs.bookingRepo.FindActiveBooking(ctx, caller.ID, in.PropertyID)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if existing != nil {
		return nil, apperror.Conflict(MsgDuplicateBooking)
	}

	booking, err := bs.bookingRepo.CreateBooking(ctx, &models.Booking{
		Property: models.NewRef[models.Property](in.PropertyID),
		User:     models.NewRef[models.UserSummary](caller.ID),
		Status:   models.BookingPending,
		Message:  in.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrActiveBookingExists):
			// Lost a race with a concurrent request for the same pair.
			return nil, apperror.Conflict(MsgDuplicateBooking)
		case errors.Is(err, models.ErrInvalidBooking):
			return nil, apperror.Validation(err.Error())
		}
		return nil, apperror.Internal("Internal Server Error", err)
	}

	bs.logger.Info("booking created",
		"booking_id", booking.ID.Hex(),
		"property_id", in.PropertyID.Hex(),
		"user_id", caller.ID.Hex(),
	)
	bs.publish(ctx, events.BookingCreated, booking, "")
	return booking, nil
}

func (bs *BookingService) CancelBooking(ctx context.Context, caller CallerContext, bookingID primitive.ObjectID) (*models.Booking, error) {
	if caller.IsAnonymous() {
		return nil, apperror.Unauthorized("Unauthorized")
	}

	booking, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if booking == nil {
		return nil, apperror.NotFound(MsgBookingNotFound)
	}

	// The reference may be populated or bare; the id is always set.
	if booking.User.Hex() != caller.ID.Hex() {
		return nil, apperror.Forbidden(MsgNotBookingOwner)
	}
	if !booking.Status.CanUserTransitionTo(models.BookingCancelled) {
		return nil, apperror.InvalidState("Cannot cancel a booking that is already " + string(booking.Status))
	}

	updated, err := bs.bookingRepo.TransitionBookingStatus(ctx, bookingID, booking.Status, models.BookingCancelled)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if updated == nil {
		return nil, apperror.Conflict(MsgBookingModified)
	}

	bs.logger.Info("booking cancelled",
		"booking_id", bookingID.Hex(),
		"user_id", caller.ID.Hex(),
	)
	bs.publish(ctx, events.BookingCancelled, updated, booking.Status)
	return updated, nil
}

type MyBookingsQuery struct {
	Status models.BookingStatus
	Search string
	PageRequest
}

func (bs *BookingService) ListMyBookings(ctx context.Context, caller CallerContext, q MyBookingsQuery) ([]*models.Booking, models.Pagination, error) {
	if caller.IsAnonymous() {
		return nil, models.Pagination{}, apperror.Unauthorized("Unauthorized")
	}
	pr := q.PageRequest.normalize(DefaultMyBookingsPageSize)

	bookings, total, err := bs.bookingRepo.ListBookings(ctx, models.BookingFilter{
		UserID: caller.ID,
		Status: q.Status,
		Search: q.Search,
	}, pr.Page, pr.Size)
	if err != nil {
		return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
	}
	return bookings, models.NewPagination(pr.Page, pr.Size, total), nil
}

// publish never fails the caller; the write it describes already happened.
func (bs *BookingService) publish(ctx context.Context, kind events.BookingEventType, b *models.Booking, from models.BookingStatus) {
	publishBookingEvent(ctx, bs.publisher, bs.logger, kind, b, from)
}

func publishBookingEvent(ctx context.Context, publisher events.Publisher, logger *slog.Logger, kind events.BookingEventType, b *models.Booking, from models.BookingStatus) {
	event := events.BookingEvent{
		Type:       kind,
		BookingID:  b.ID.Hex(),
		PropertyID: b.Property.Hex(),
		UserID:     b.User.Hex(),
		From:       string(from),
		To:         string(b.Status),
		OccurredAt: time.Now().UTC(),
	}
	if err := publisher.PublishBookingEvent(ctx, event); err != nil {
		logger.Warn("failed to publish booking event",
			"event", string(kind),
			"booking_id", event.BookingID,
			"error", err,
		)
	}
}
