// Package testutil holds in-memory repositories that honour the same
// constraints as the Mongo implementation.
package testutil

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/nestly/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store implements every repository interface in models.
type Store struct {
	mu         sync.Mutex
	bookings   map[primitive.ObjectID]models.Booking
	properties map[primitive.ObjectID]models.Property
	users      map[primitive.ObjectID]models.User
	favourites map[[2]primitive.ObjectID]models.Favourite

	// Err, when set, is returned by every operation.
	Err error
	// Now overrides the clock.
	Now func() time.Time
}

var (
	_ models.BookingRepo   = (*Store)(nil)
	_ models.PropertyRepo  = (*Store)(nil)
	_ models.UserRepo      = (*Store)(nil)
	_ models.FavouriteRepo = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		bookings:   make(map[primitive.ObjectID]models.Booking),
		properties: make(map[primitive.ObjectID]models.Property),
		users:      make(map[primitive.ObjectID]models.User),
		favourites: make(map[[2]primitive.ObjectID]models.Favourite),
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func page[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func newest(aCreated, bCreated time.Time, aID, bID primitive.ObjectID) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return bytes.Compare(aID[:], bID[:]) > 0
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Bookings

func (s *Store) CreateBooking(_ context.Context, booking *models.Booking) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := booking.BeforeCreate(s.now()); err != nil {
		return nil, err
	}
	if err := s.checkBookingConstraints(*booking); err != nil {
		return nil, err
	}
	stored := *booking
	stored.Property = models.NewRef[models.Property](booking.Property.ID)
	stored.User = models.NewRef[models.UserSummary](booking.User.ID)
	s.bookings[stored.ID] = stored
	out := stored
	return &out, nil
}

// checkBookingConstraints mirrors the two partial unique indexes.
func (s *Store) checkBookingConstraints(candidate models.Booking) error {
	for id, b := range s.bookings {
		if id == candidate.ID {
			continue
		}
		if candidate.Status == models.BookingConfirmed && b.Status == models.BookingConfirmed &&
			b.Property.ID == candidate.Property.ID {
			return models.ErrPropertyAlreadyRented
		}
		if candidate.Active && b.Active &&
			b.Property.ID == candidate.Property.ID && b.User.ID == candidate.User.ID {
			return models.ErrActiveBookingExists
		}
	}
	return nil
}

func (s *Store) populate(b models.Booking) *models.Booking {
	if p, ok := s.properties[b.Property.ID]; ok {
		b.Property = models.ExpandedRef(p.ID, &p)
	}
	if u, ok := s.users[b.User.ID]; ok {
		b.User = models.ExpandedRef(u.ID, &models.UserSummary{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return &b
}

func (s *Store) GetBookingByID(_ context.Context, id primitive.ObjectID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return s.populate(b), nil
}

func (s *Store) ListBookings(_ context.Context, filter models.BookingFilter, pg, size int) ([]*models.Booking, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []models.Booking
	for _, b := range s.bookings {
		if !filter.UserID.IsZero() && b.User.ID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if q := strings.TrimSpace(filter.Search); q != "" && !containsFold(b.Message, q) {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newest(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	out := make([]*models.Booking, 0, size)
	for _, b := range page(matched, pg, size) {
		out = append(out, s.populate(b))
	}
	return out, int64(len(matched)), nil
}

func (s *Store) FindActiveBooking(_ context.Context, userID, propertyID primitive.ObjectID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, b := range s.bookings {
		if b.User.ID == userID && b.Property.ID == propertyID && b.Status.IsActive() {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) FindConfirmedBooking(_ context.Context, propertyID, excludeID primitive.ObjectID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for id, b := range s.bookings {
		if id != excludeID && b.Property.ID == propertyID && b.Status == models.BookingConfirmed {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) HasConfirmedBooking(ctx context.Context, propertyID primitive.ObjectID) (bool, error) {
	b, err := s.FindConfirmedBooking(ctx, propertyID, primitive.NilObjectID)
	return b != nil, err
}

func (s *Store) ConfirmedPropertyIDs(_ context.Context, propertyIDs []primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	wanted := make(map[primitive.ObjectID]bool, len(propertyIDs))
	for _, id := range propertyIDs {
		wanted[id] = true
	}
	rented := make(map[primitive.ObjectID]bool)
	for _, b := range s.bookings {
		if b.Status == models.BookingConfirmed && wanted[b.Property.ID] {
			rented[b.Property.ID] = true
		}
	}
	return rented, nil
}

func (s *Store) setStatus(id primitive.ObjectID, from *models.BookingStatus, to models.BookingStatus) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b, ok := s.bookings[id]
	if !ok || (from != nil && b.Status != *from) {
		return nil, nil
	}
	b.Status = to
	b.Active = to.IsActive()
	b.UpdatedAt = s.now()
	if err := s.checkBookingConstraints(b); err != nil {
		return nil, err
	}
	s.bookings[id] = b
	out := b
	return &out, nil
}

func (s *Store) UpdateBookingStatus(_ context.Context, id primitive.ObjectID, status models.BookingStatus) (*models.Booking, error) {
	return s.setStatus(id, nil, status)
}

func (s *Store) TransitionBookingStatus(_ context.Context, id primitive.ObjectID, from, to models.BookingStatus) (*models.Booking, error) {
	return s.setStatus(id, &from, to)
}

// CountBookings counts stored bookings for a property, optionally by status.
func (s *Store) CountBookings(propertyID primitive.ObjectID, status models.BookingStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.Property.ID == propertyID && (status == "" || b.Status == status) {
			n++
		}
	}
	return n
}

// Properties

func (s *Store) CreateProperty(_ context.Context, property *models.Property) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := property.BeforeCreate(s.now()); err != nil {
		return nil, err
	}
	stored := *property
	stored.IsRented = nil
	s.properties[stored.ID] = stored
	out := stored
	return &out, nil
}

func (s *Store) GetPropertyByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) ListProperties(_ context.Context, filter models.PropertyFilter, pg, size int) ([]*models.Property, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []models.Property
	for _, p := range s.properties {
		if q := strings.TrimSpace(filter.Search); q != "" &&
			!containsFold(p.Title, q) && !containsFold(p.Description, q) && !containsFold(p.City, q) {
			continue
		}
		if filter.PropertyType != "" && p.PropertyType != filter.PropertyType {
			continue
		}
		if filter.BHK != "" && p.BHK != filter.BHK {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newest(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	out := make([]*models.Property, 0, size)
	for _, p := range page(matched, pg, size) {
		p := p
		out = append(out, &p)
	}
	return out, int64(len(matched)), nil
}

func (s *Store) UpdateProperty(_ context.Context, id primitive.ObjectID, update models.PropertyUpdate) (*models.Property, error) {
	if err := models.Validate.Struct(update); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.properties[id]
	if !ok {
		return nil, nil
	}
	update.Apply(&p)
	p.UpdatedAt = s.now()
	s.properties[id] = p
	return &p, nil
}

func (s *Store) DeleteProperty(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.properties[id]
	delete(s.properties, id)
	return ok, nil
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if err := user.BeforeCreate(s.now()); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, models.ErrDuplicateUser
		}
	}
	stored := *user
	s.users[stored.ID] = stored
	out := stored
	return &out, nil
}

func (s *Store) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListUsers(_ context.Context, filter models.UserFilter, pg, size int) ([]*models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []models.User
	for _, u := range s.users {
		if q := strings.TrimSpace(filter.Search); q != "" &&
			!containsFold(u.Username, q) && !containsFold(u.Email, q) &&
			!containsFold(u.FirstName, q) && !containsFold(u.LastName, q) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		return newest(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	out := make([]*models.User, 0, size)
	for _, u := range page(matched, pg, size) {
		u := u
		out = append(out, &u)
	}
	return out, int64(len(matched)), nil
}

func (s *Store) UpdateUser(_ context.Context, id primitive.ObjectID, update models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Username, update.Username)
	set(&u.Password, update.Password)
	set(&u.FirstName, update.FirstName)
	set(&u.LastName, update.LastName)
	set(&u.PhoneNumber, update.PhoneNumber)
	set(&u.ProfilePicture, update.ProfilePicture)
	set(&u.Role, update.Role)
	if update.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	for otherID, other := range s.users {
		if otherID != id && (other.Email == u.Email || other.Username == u.Username) {
			return nil, models.ErrDuplicateUser
		}
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

func (s *Store) DeleteUser(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.users[id]
	delete(s.users, id)
	return ok, nil
}

// Favourites

func (s *Store) AddToFavourites(_ context.Context, userID, propertyID primitive.ObjectID) (*models.Favourite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	key := [2]primitive.ObjectID{userID, propertyID}
	now := s.now()
	fav, ok := s.favourites[key]
	if !ok {
		fav = models.Favourite{
			ID:        primitive.NewObjectID(),
			User:      userID,
			Property:  models.NewRef[models.Property](propertyID),
			CreatedAt: now,
		}
	}
	fav.UpdatedAt = now
	s.favourites[key] = fav
	return &fav, nil
}

func (s *Store) RemoveFromFavourites(_ context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	key := [2]primitive.ObjectID{userID, propertyID}
	_, ok := s.favourites[key]
	delete(s.favourites, key)
	return ok, nil
}

func (s *Store) IsFavourited(_ context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	_, ok := s.favourites[[2]primitive.ObjectID{userID, propertyID}]
	return ok, nil
}

func (s *Store) GetFavouritesByUserID(_ context.Context, userID primitive.ObjectID, pg, size int) ([]*models.Favourite, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}

	var matched []models.Favourite
	for _, f := range s.favourites {
		if f.User == userID {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return newest(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	out := make([]*models.Favourite, 0, size)
	for _, f := range page(matched, pg, size) {
		if p, ok := s.properties[f.Property.ID]; ok {
			f.Property = models.ExpandedRef(p.ID, &p)
		}
		f := f
		out = append(out, &f)
	}
	return out, int64(len(matched)), nil
}
