package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/nestly/internal/config"
	"github.com/joshua-takyi/nestly/internal/container"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/helpers"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
	"github.com/joshua-takyi/nestly/internal/testutil"
)

const testSecret = "route-test-secret"

type testServer struct {
	router    *gin.Engine
	store     *testutil.Store
	tokens    *helpers.TokenManager
	publisher *testutil.RecordingPublisher
}

type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Token      string             `json:"token"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		JWTSecret:   testSecret,
		JWTExpiry:   time.Hour,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	store := testutil.NewStore()
	pub := &testutil.RecordingPublisher{}
	tokens := helpers.NewTokenManager(testSecret, time.Hour, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repos := container.Repositories{Bookings: store, Properties: store, Users: store, Favourites: store}
	c := container.NewContainer(cfg, logger, tokens, repos, container.Infra{Publisher: pub})

	return &testServer{
		router:    SetupRoutes(c),
		store:     store,
		tokens:    tokens,
		publisher: pub,
	}
}

func (ts *testServer) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := ts.tokens.GenerateToken(u.ID.Hex(), u.Role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// refView accepts a reference either as a bare hex id or as the populated
// document.
type refView struct {
	ID       string
	Title    string
	Username string
}

func (r *refView) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var doc struct {
		ID       string `json:"_id"`
		Title    string `json:"title"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	r.ID, r.Title, r.Username = doc.ID, doc.Title, doc.Username
	return nil
}

type bookingView struct {
	ID       string  `json:"_id"`
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Property refView `json:"property"`
	User     refView `json:"user"`
}

type propertyView struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	IsRented *bool  `json:"isRented"`
}

func (ts *testServer) createBooking(t *testing.T, token, propertyID string) bookingView {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/bookings", token, gin.H{"property": propertyID, "message": "Is it available?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b bookingView
	decodeData(t, decode(t, rec), &b)
	return b
}

func (ts *testServer) setStatus(t *testing.T, token, bookingID, status string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPatch, "/api/admin/bookings/"+bookingID+"/status", token, gin.H{"status": status})
}

func (ts *testServer) isRented(t *testing.T, propertyID string) bool {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/properties/"+propertyID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p propertyView
	decodeData(t, decode(t, rec), &p)
	require.NotNil(t, p.IsRented)
	return *p.IsRented
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","service":"nestly-api"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "root", models.RoleAdmin))
	asha := testutil.SeedUser(t, ts.store, "asha", models.RoleUser)
	ashaToken := ts.tokenFor(t, asha)
	ravi := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "ravi", models.RoleUser))
	property := testutil.SeedProperty(t, ts.store, "Lake facing flat")
	pid := property.ID.Hex()

	t.Run("create then duplicate", func(t *testing.T) {
		b := ts.createBooking(t, ashaToken, pid)
		assert.Equal(t, "PENDING", b.Status)
		assert.Equal(t, pid, b.Property.ID)
		assert.Equal(t, asha.ID.Hex(), b.User.ID)

		rec := ts.do(t, http.MethodPost, "/api/bookings", ashaToken, gin.H{"property": pid})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, services.MsgDuplicateBooking, decode(t, rec).Message)
	})

	var raviBooking bookingView
	t.Run("confirm marks the property rented", func(t *testing.T) {
		raviBooking = ts.createBooking(t, ravi, pid)

		rec := ts.do(t, http.MethodGet, "/api/bookings/my-bookings", ashaToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var mine []bookingView
		env := decode(t, rec)
		decodeData(t, env, &mine)
		require.Len(t, mine, 1)
		assert.Equal(t, "Lake facing flat", mine[0].Property.Title)
		assert.Equal(t, "asha", mine[0].User.Username)
		require.NotNil(t, env.Pagination)
		assert.Equal(t, 12, env.Pagination.Size)

		rec = ts.setStatus(t, admin, mine[0].ID, "CONFIRMED")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Booking has been confirmed", decode(t, rec).Message)
		assert.True(t, ts.isRented(t, pid))
	})

	t.Run("second confirm is refused", func(t *testing.T) {
		rec := ts.setStatus(t, admin, raviBooking.ID, "CONFIRMED")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, services.MsgPropertyAlreadyTaken, decode(t, rec).Message)
	})

	t.Run("owner cancels pending, stranger cannot", func(t *testing.T) {
		rec := ts.do(t, http.MethodPatch, "/api/bookings/"+raviBooking.ID+"/cancel", ashaToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = ts.do(t, http.MethodPatch, "/api/bookings/"+raviBooking.ID+"/cancel", ravi, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var b bookingView
		decodeData(t, decode(t, rec), &b)
		assert.Equal(t, "CANCELLED", b.Status)

		rec = ts.do(t, http.MethodPatch, "/api/bookings/"+raviBooking.ID+"/cancel", ravi, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejecting the confirmed booking frees the property", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/admin/bookings?status=CONFIRMED", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var confirmed []bookingView
		env := decode(t, rec)
		decodeData(t, env, &confirmed)
		require.Len(t, confirmed, 1)
		assert.Equal(t, 10, env.Pagination.Size)

		rec = ts.setStatus(t, admin, confirmed[0].ID, "REJECTED")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Booking has been rejected", decode(t, rec).Message)
		assert.False(t, ts.isRented(t, pid))
	})

	assert.Len(t, ts.publisher.Events(), 5)
	assert.Equal(t, events.BookingCreated, ts.publisher.Events()[0].Type)
}

func TestBookingValidation(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "root", models.RoleAdmin))
	user := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "asha", models.RoleUser))
	pid := testutil.SeedProperty(t, ts.store, "Garden villa").ID.Hex()

	cases := []struct {
		name    string
		method  string
		path    string
		token   string
		body    interface{}
		status  int
		message string
	}{
		{"malformed property id", http.MethodPost, "/api/bookings", user, gin.H{"property": "nope"}, 400, "Invalid Property ID"},
		{"message too long", http.MethodPost, "/api/bookings", user, gin.H{"property": pid, "message": strings.Repeat("a", 501)}, 400, "Message is too long"},
		{"unknown property", http.MethodPost, "/api/bookings", user, gin.H{"property": "65f1c0c0c0c0c0c0c0c0c0c0"}, 404, services.MsgPropertyNotFound},
		{"bad status filter", http.MethodGet, "/api/bookings/my-bookings?status=pending", user, nil, 400, "Invalid status filter"},
		{"bad page", http.MethodGet, "/api/bookings/my-bookings?page=abc", user, nil, 400, "page and size must be positive integers"},
		{"zero size", http.MethodGet, "/api/admin/bookings?size=0", admin, nil, 400, "page and size must be positive integers"},
		{"malformed booking id", http.MethodPatch, "/api/bookings/xyz/cancel", user, nil, 400, "Invalid Booking ID"},
		{"missing booking", http.MethodPatch, "/api/bookings/65f1c0c0c0c0c0c0c0c0c0c0/cancel", user, nil, 404, services.MsgBookingNotFound},
		{"invalid admin status", http.MethodPatch, "/api/admin/bookings/65f1c0c0c0c0c0c0c0c0c0c0/status", admin, gin.H{"status": "DONE"}, 400, "Invalid status. Must be one of: PENDING, CONFIRMED, REJECTED, CANCELLED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Message)
		})
	}
}

func TestLargeSizeIsCapped(t *testing.T) {
	ts := newTestServer(t)
	user := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "asha", models.RoleUser))

	rec := ts.do(t, http.MethodGet, "/api/bookings/my-bookings?size=5000", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.MaxPageSize, decode(t, rec).Pagination.Size)
}

func TestAccessControl(t *testing.T) {
	ts := newTestServer(t)
	user := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "asha", models.RoleUser))
	ghost := testutil.SeedUser(t, ts.store, "ghost", models.RoleAdmin)
	ghostToken := ts.tokenFor(t, ghost)
	_, err := ts.store.DeleteUser(t.Context(), ghost.ID)
	require.NoError(t, err)

	cases := []struct {
		name    string
		method  string
		path    string
		token   string
		status  int
		message string
	}{
		{"no token", http.MethodGet, "/api/bookings/my-bookings", "", 401, "Unauthorized, token missing"},
		{"garbage token", http.MethodGet, "/api/bookings/my-bookings", "not.a.jwt", 401, "Unauthorized, invalid token"},
		{"deleted user", http.MethodGet, "/api/admin/bookings", ghostToken, 401, "Unauthorized, User not found"},
		{"user on admin route", http.MethodGet, "/api/admin/bookings", user, 403, "Forbidden, Admins only"},
		{"user on admin users", http.MethodGet, "/api/admin/users", user, 403, "Forbidden, Admins only"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, tc.method, tc.path, tc.token, nil)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decode(t, rec).Message)
		})
	}
}

func TestRoleComesFromStoredUser(t *testing.T) {
	ts := newTestServer(t)
	u := testutil.SeedUser(t, ts.store, "asha", models.RoleUser)
	forged, err := ts.tokens.GenerateToken(u.ID.Hex(), models.RoleAdmin)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/admin/bookings", forged, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStorageFailureIsGeneric500(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Err = errors.New("connection reset")

	rec := ts.do(t, http.MethodGet, "/api/properties", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal Server Error", env.Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName":       "Asha",
		"lastName":        "Rao",
		"email":           "asha@example.com",
		"username":        "asha",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret123")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName":       "Asha",
		"lastName":        "Rao",
		"email":           "asha@example.com",
		"username":        "asha2",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.MsgUserExists, decode(t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "asha@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.NotEmpty(t, env.Token)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "access_token" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, env.Token, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req.AddCookie(cookie)
	whoami := httptest.NewRecorder()
	ts.router.ServeHTTP(whoami, req)
	require.Equal(t, http.StatusOK, whoami.Code)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decodeData(t, decode(t, whoami), &me)
	assert.Equal(t, "asha@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	rec = ts.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "access_token=;")
}

func TestFavouritesOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	user := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "asha", models.RoleUser))
	pid := testutil.SeedProperty(t, ts.store, "Quiet studio").ID.Hex()

	toggle := func() bool {
		rec := ts.do(t, http.MethodPost, "/api/favourites/toggle", user, gin.H{"propertyId": pid})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			Favorited bool `json:"favorited"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Favorited
	}
	status := func() bool {
		rec := ts.do(t, http.MethodGet, "/api/favourites/status/"+pid, user, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			IsFavorited bool `json:"isFavorited"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.IsFavorited
	}

	assert.True(t, toggle())
	assert.True(t, status())

	rec := ts.do(t, http.MethodGet, "/api/favourites/my-wishlist", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode(t, rec).Pagination.TotalItems)

	assert.False(t, toggle())
	assert.False(t, status())

	rec = ts.do(t, http.MethodPost, "/api/favourites/toggle", user, gin.H{"propertyId": "65f1c0c0c0c0c0c0c0c0c0c0"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminPropertyCRUD(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.tokenFor(t, testutil.SeedUser(t, ts.store, "root", models.RoleAdmin))

	rec := ts.do(t, http.MethodPost, "/api/admin/properties", admin, gin.H{"title": "Hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/properties", admin, gin.H{
		"title":        "Penthouse with terrace",
		"description":  "Top floor home with a private terrace garden",
		"propertyType": "APARTMENT",
		"bhk":          "3BHK",
		"price":        54000,
		"address":      "7 Hill Road",
		"city":         "Mumbai",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created propertyView
	decodeData(t, decode(t, rec), &created)

	rec = ts.do(t, http.MethodPut, "/api/admin/properties/"+created.ID, admin, gin.H{"title": "Penthouse with big terrace"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated propertyView
	decodeData(t, decode(t, rec), &updated)
	assert.Equal(t, "Penthouse with big terrace", updated.Title)

	rec = ts.do(t, http.MethodGet, "/api/properties?search=big+terrace", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []propertyView
	decodeData(t, decode(t, rec), &found)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].IsRented)
	assert.False(t, *found[0].IsRented)

	rec = ts.do(t, http.MethodDelete, "/api/admin/properties/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/properties/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
