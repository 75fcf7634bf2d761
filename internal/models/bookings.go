package models

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BookingColName = "bookings"

	MaxBookingMessageLength = 500
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCancelled BookingStatus = "CANCELLED"
)

var BookingStatuses = []BookingStatus{
	BookingPending,
	BookingConfirmed,
	BookingRejected,
	BookingCancelled,
}

// Transitions a booking owner may perform.
var userTransitions = map[BookingStatus][]BookingStatus{
	BookingPending: {BookingCancelled},
}

var (
	ErrInvalidBooking        = errors.New("invalid booking")
	ErrActiveBookingExists   = errors.New("an active booking already exists for this user and property")
	ErrPropertyAlreadyRented = errors.New("property already has a confirmed booking")
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range BookingStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", s)
}

func (s BookingStatus) IsValid() bool {
	_, err := ParseBookingStatus(string(s))
	return err == nil
}

// IsActive reports whether the status still occupies the user's one
// booking slot for a property.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingRejected || s == BookingCancelled
}

func (s BookingStatus) CanUserTransitionTo(next BookingStatus) bool {
	return allowed(userTransitions, s, next)
}

func allowed(table map[BookingStatus][]BookingStatus, from, to BookingStatus) bool {
	for _, st := range table[from] {
		if st == to {
			return true
		}
	}
	return false
}

// UserSummary is the subset of a user exposed on populated bookings.
type UserSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	FirstName string             `bson:"firstName" json:"firstName"`
	LastName  string             `bson:"lastName" json:"lastName"`
}

type Booking struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Property Ref[Property]      `bson:"property" json:"property"`
	User     Ref[UserSummary]   `bson:"user" json:"user"`
	Status   BookingStatus      `bson:"status" json:"status"`
	Message  string             `bson:"message,omitempty" json:"message,omitempty"`
	// Active mirrors Status.IsActive() so a partial unique index can cover it.
	Active    bool      `bson:"active" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (b *Booking) BeforeCreate(now time.Time) error {
	if b.Property.ID.IsZero() {
		return fmt.Errorf("%w: property reference is required", ErrInvalidBooking)
	}
	if b.User.ID.IsZero() {
		return fmt.Errorf("%w: user reference is required", ErrInvalidBooking)
	}
	if utf8.RuneCountInString(b.Message) > MaxBookingMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidBooking, MaxBookingMessageLength)
	}
	if b.Status == "" {
		b.Status = BookingPending
	}
	if !b.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidBooking, b.Status)
	}
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.Active = b.Status.IsActive()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

type BookingFilter struct {
	UserID primitive.ObjectID
	Status BookingStatus
	// Search is a case-insensitive substring match on the message.
	Search string
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) (*Booking, error)
	// GetBookingByID returns nil, nil when no booking matches.
	GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter, page, size int) ([]*Booking, int64, error)
	FindActiveBooking(ctx context.Context, userID, propertyID primitive.ObjectID) (*Booking, error)
	FindConfirmedBooking(ctx context.Context, propertyID, excludeID primitive.ObjectID) (*Booking, error)
	HasConfirmedBooking(ctx context.Context, propertyID primitive.ObjectID) (bool, error)
	ConfirmedPropertyIDs(ctx context.Context, propertyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status BookingStatus) (*Booking, error)
	// TransitionBookingStatus only applies when the stored status still
	// equals from; otherwise it returns nil, nil.
	TransitionBookingStatus(ctx context.Context, id primitive.ObjectID, from, to BookingStatus) (*Booking, error)
}
