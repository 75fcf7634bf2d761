package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/testutil"
)

type bookingFixture struct {
	store     *testutil.Store
	publisher *testutil.RecordingPublisher
	bookings  *BookingService
	admin     *AdminBookingService
	avail     *AvailabilityService
	adminCtx  CallerContext
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	store := testutil.NewStore()
	pub := &testutil.RecordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	admin := testutil.SeedUser(t, store, "root", models.RoleAdmin)
	return &bookingFixture{
		store:     store,
		publisher: pub,
		bookings:  NewBookingService(store, store, pub, logger),
		admin:     NewAdminBookingService(store, pub, logger),
		avail:     NewAvailabilityService(store),
		adminCtx:  CallerContext{ID: admin.ID, Role: models.RoleAdmin},
	}
}

func (f *bookingFixture) user(t *testing.T, name string) CallerContext {
	u := testutil.SeedUser(t, f.store, name, models.RoleUser)
	return CallerContext{ID: u.ID, Role: models.RoleUser}
}

func assertKind(t *testing.T, err error, kind apperror.Kind, msg string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	if msg != "" {
		assert.Equal(t, msg, appErr.Message)
	}
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "hi", b.Message)
	assert.Equal(t, u.ID, b.User.ID)
	assert.Equal(t, p.ID, b.Property.ID)

	t.Run("duplicate active booking", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
		assertKind(t, err, apperror.KindConflict, MsgDuplicateBooking)
		assert.Equal(t, 1, f.store.CountBookings(p.ID, ""))
	})

	t.Run("duplicate while confirmed", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, models.BookingConfirmed)
		require.NoError(t, err)

		_, err = f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
		assertKind(t, err, apperror.KindConflict, MsgDuplicateBooking)
		assert.Equal(t, 1, f.store.CountBookings(p.ID, ""))
	})

	t.Run("missing property", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: primitive.NewObjectID()})
		assertKind(t, err, apperror.KindNotFound, MsgPropertyNotFound)
	})

	t.Run("anonymous caller", func(t *testing.T) {
		_, err := f.bookings.CreateBooking(ctx, CallerContext{}, CreateBookingInput{PropertyID: p.ID})
		assertKind(t, err, apperror.KindUnauthorized, "")
	})

	t.Run("storage failure", func(t *testing.T) {
		f.store.Err = errors.New("connection reset")
		defer func() { f.store.Err = nil }()

		_, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
		assertKind(t, err, apperror.KindInternal, "")
	})
}

func TestCreateAfterCancelIsAllowed(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	first, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	_, err = f.bookings.CancelBooking(ctx, u, first.ID)
	require.NoError(t, err)

	second, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, f.store.CountBookings(p.ID, ""))
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	u2 := f.user(t, "ravi")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(ctx, u2, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)

	t.Run("not the owner", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, u, b.ID)
		assertKind(t, err, apperror.KindForbidden, MsgNotBookingOwner)

		stored, err := f.store.GetBookingByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, stored.Status)
	})

	t.Run("admin is not the owner either", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, f.adminCtx, b.ID)
		assertKind(t, err, apperror.KindForbidden, MsgNotBookingOwner)
	})

	t.Run("owner cancels", func(t *testing.T) {
		cancelled, err := f.bookings.CancelBooking(ctx, u2, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingCancelled, cancelled.Status)
	})

	t.Run("second cancel", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, u2, b.ID)
		assertKind(t, err, apperror.KindInvalidState, "Cannot cancel a booking that is already CANCELLED")
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.bookings.CancelBooking(ctx, u2, primitive.NewObjectID())
		assertKind(t, err, apperror.KindNotFound, MsgBookingNotFound)
	})
}

func TestCancelRequiresPending(t *testing.T) {
	for _, target := range []models.BookingStatus{models.BookingConfirmed, models.BookingRejected} {
		t.Run(string(target), func(t *testing.T) {
			f := newBookingFixture(t)
			ctx := context.Background()
			u := f.user(t, "asha")
			p := testutil.SeedProperty(t, f.store, "Sea view flat")

			b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
			require.NoError(t, err)
			_, err = f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, target)
			require.NoError(t, err)

			_, err = f.bookings.CancelBooking(ctx, u, b.ID)
			assertKind(t, err, apperror.KindInvalidState, "Cannot cancel a booking that is already "+string(target))

			stored, err := f.store.GetBookingByID(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, target, stored.Status)
		})
	}
}

func TestAdminUpdateStatus(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	u2 := f.user(t, "ravi")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b1, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	b2, err := f.bookings.CreateBooking(ctx, u2, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)

	confirmed, err := f.admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)

	t.Run("second confirmation on the same property", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, f.adminCtx, b2.ID, models.BookingConfirmed)
		assertKind(t, err, apperror.KindConflict, MsgPropertyAlreadyTaken)

		stored, err := f.store.GetBookingByID(ctx, b2.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, stored.Status)
	})

	t.Run("re-confirming the holder is not a conflict", func(t *testing.T) {
		again, err := f.admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, again.Status)
	})

	t.Run("not an admin", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, u, b2.ID, models.BookingRejected)
		assertKind(t, err, apperror.KindForbidden, "")
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, f.adminCtx, b2.ID, models.BookingStatus("ARCHIVED"))
		assertKind(t, err, apperror.KindValidation, "")
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, f.adminCtx, primitive.NewObjectID(), models.BookingRejected)
		assertKind(t, err, apperror.KindNotFound, MsgBookingNotFound)
	})

	t.Run("rejecting the confirmed booking frees the property", func(t *testing.T) {
		rejected, err := f.admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingRejected)
		require.NoError(t, err)
		assert.Equal(t, models.BookingRejected, rejected.Status)

		again, err := f.admin.UpdateStatus(ctx, f.adminCtx, b2.ID, models.BookingConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingConfirmed, again.Status)
	})

	t.Run("reviving a rejected booking still honours the confirm guard", func(t *testing.T) {
		_, err := f.admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingConfirmed)
		assertKind(t, err, apperror.KindConflict, MsgPropertyAlreadyTaken)

		pending, err := f.admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingPending)
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, pending.Status)
	})

	assert.Equal(t, 1, f.store.CountBookings(p.ID, models.BookingConfirmed))
}

func TestAdminMayMoveBetweenAnyStatuses(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)

	steps := []models.BookingStatus{
		models.BookingConfirmed,
		models.BookingConfirmed,
		models.BookingCancelled,
		models.BookingConfirmed,
		models.BookingRejected,
		models.BookingConfirmed,
		models.BookingPending,
	}
	for _, next := range steps {
		updated, err := f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, next)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	rented, err := f.avail.IsRented(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rented)
}

func TestAdminRevivalBlockedByNewerActiveBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	old, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	_, err = f.bookings.CancelBooking(ctx, u, old.ID)
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)

	_, err = f.admin.UpdateStatus(ctx, f.adminCtx, old.ID, models.BookingPending)
	assertKind(t, err, apperror.KindConflict, MsgUserHasActiveBooking)

	stored, err := f.store.GetBookingByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, stored.Status)
}

func TestAvailabilityFollowsConfirmation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")
	other := testutil.SeedProperty(t, f.store, "Hill cottage")

	rented, err := f.avail.IsRented(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rented)

	b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	rented, err = f.avail.IsRented(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rented, "a pending booking does not rent the property")

	_, err = f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, models.BookingConfirmed)
	require.NoError(t, err)
	rented, err = f.avail.IsRented(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, rented)

	props := []*models.Property{p, other}
	require.NoError(t, f.avail.Annotate(ctx, props))
	assert.True(t, *p.IsRented)
	assert.False(t, *other.IsRented)

	_, err = f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, models.BookingRejected)
	require.NoError(t, err)
	rented, err = f.avail.IsRented(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rented)
}

func TestListMyBookings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	u2 := f.user(t, "ravi")

	for i, title := range []string{"Sea view flat", "Hill cottage", "Lake house"} {
		p := testutil.SeedProperty(t, f.store, title)
		msg := "Please call me"
		if i == 1 {
			msg = "Is parking included?"
		}
		_, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID, Message: msg})
		require.NoError(t, err)
		_, err = f.bookings.CreateBooking(ctx, u2, CreateBookingInput{PropertyID: p.ID})
		require.NoError(t, err)
	}

	bookings, page, err := f.bookings.ListMyBookings(ctx, u, MyBookingsQuery{PageRequest: PageRequest{Page: 1, Size: 2}})
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.Equal(t, models.Pagination{Page: 1, Size: 2, TotalItems: 3, TotalPages: 2}, page)
	for _, b := range bookings {
		assert.Equal(t, u.ID, b.User.ID)
		assert.True(t, b.Property.IsExpanded())
	}

	bookings, _, err = f.bookings.ListMyBookings(ctx, u, MyBookingsQuery{Search: "PARKING"})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Is parking included?", bookings[0].Message)

	bookings, page, err = f.bookings.ListMyBookings(ctx, u, MyBookingsQuery{Status: models.BookingConfirmed})
	require.NoError(t, err)
	assert.Empty(t, bookings)
	assert.Equal(t, DefaultMyBookingsPageSize, page.Size)

	all, page, err := f.admin.ListBookings(ctx, f.adminCtx, AdminBookingsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
	assert.Equal(t, DefaultAdminPageSize, page.Size)
}

func TestLifecycleEvents(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	_, err = f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, models.BookingRejected)
	require.NoError(t, err)

	got := f.publisher.Events()
	require.Len(t, got, 2)
	assert.Equal(t, events.BookingCreated, got[0].Type)
	assert.Equal(t, "PENDING", got[0].To)
	assert.Equal(t, events.BookingStatusChanged, got[1].Type)
	assert.Equal(t, "PENDING", got[1].From)
	assert.Equal(t, "REJECTED", got[1].To)
	assert.Equal(t, b.ID.Hex(), got[1].BookingID)
	assert.Equal(t, p.ID.Hex(), got[1].PropertyID)
}

func TestPublishFailureDoesNotFailTheRequest(t *testing.T) {
	f := newBookingFixture(t)
	f.publisher.Err = errors.New("broker down")
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(context.Background(), u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
}

func TestConcurrentCreateKeepsOneActiveBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertKind(t, err, apperror.KindConflict, MsgDuplicateBooking)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.CountBookings(p.ID, ""))
}

func TestConcurrentConfirmKeepsOneConfirmedBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	const n = 8
	ids := make([]primitive.ObjectID, n)
	for i := range ids {
		u := f.user(t, "tenant"+string(rune('a'+i)))
		b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
		require.NoError(t, err)
		ids[i] = b.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			_, errs[i] = f.admin.UpdateStatus(ctx, f.adminCtx, id, models.BookingConfirmed)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertKind(t, err, apperror.KindConflict, MsgPropertyAlreadyTaken)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.CountBookings(p.ID, models.BookingConfirmed))
}

// staleStore answers every guard query with "nothing found", the view a
// request gets when a concurrent write lands between its read and its write.
type staleStore struct {
	*testutil.Store
}

func (staleStore) FindActiveBooking(context.Context, primitive.ObjectID, primitive.ObjectID) (*models.Booking, error) {
	return nil, nil
}

func (staleStore) FindConfirmedBooking(context.Context, primitive.ObjectID, primitive.ObjectID) (*models.Booking, error) {
	return nil, nil
}

func TestStorageConstraintsCatchStaleGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	stale := staleStore{f.store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bookings := NewBookingService(stale, f.store, nil, logger)
	admin := NewAdminBookingService(stale, nil, logger)

	u := f.user(t, "asha")
	u2 := f.user(t, "ravi")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b1, err := bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	_, err = bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	assertKind(t, err, apperror.KindConflict, MsgDuplicateBooking)

	b2, err := bookings.CreateBooking(ctx, u2, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)

	_, err = admin.UpdateStatus(ctx, f.adminCtx, b1.ID, models.BookingConfirmed)
	require.NoError(t, err)
	_, err = admin.UpdateStatus(ctx, f.adminCtx, b2.ID, models.BookingConfirmed)
	assertKind(t, err, apperror.KindConflict, MsgPropertyAlreadyTaken)

	assert.Equal(t, 1, f.store.CountBookings(p.ID, models.BookingConfirmed))
}

// movedStore reports a stale status on read so the compare-and-swap misses.
type movedStore struct {
	*testutil.Store
}

func (m movedStore) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	b, err := m.Store.GetBookingByID(ctx, id)
	if b != nil {
		b.Status = models.BookingPending
	}
	return b, err
}

func TestCompareAndSwapMissIsAConflict(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha")
	p := testutil.SeedProperty(t, f.store, "Sea view flat")

	b, err := f.bookings.CreateBooking(ctx, u, CreateBookingInput{PropertyID: p.ID})
	require.NoError(t, err)
	_, err = f.admin.UpdateStatus(ctx, f.adminCtx, b.ID, models.BookingRejected)
	require.NoError(t, err)

	bookings := NewBookingService(movedStore{f.store}, f.store, nil, nil)
	_, err = bookings.CancelBooking(ctx, u, b.ID)
	assertKind(t, err, apperror.KindConflict, MsgBookingModified)

	stored, err := f.store.GetBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, stored.Status)
}
