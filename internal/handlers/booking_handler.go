package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

type createBookingRequest struct {
	Property string `json:"property" binding:"required,mongodb"`
	Message  string `json:"message" binding:"max=500"`
}

var createBookingMessages = map[string]string{
	"property": "Invalid Property ID",
	"message":  "Message is too long",
}

func CreateBooking(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}

		var req createBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, services.BindingError(err, createBookingMessages))
			return
		}
		propertyID, err := primitive.ObjectIDFromHex(req.Property)
		if err != nil {
			badRequest(c, "Invalid Property ID")
			return
		}

		booking, err := bs.CreateBooking(c.Request.Context(), caller, services.CreateBookingInput{
			PropertyID: propertyID,
			Message:    req.Message,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, models.SuccessResponse(booking, "Booking request created successfully"))
	}
}

func GetMyBookings(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		pr, ok := pageRequest(c)
		if !ok {
			return
		}
		status, ok := statusQuery(c)
		if !ok {
			return
		}

		bookings, pagination, err := bs.ListMyBookings(c.Request.Context(), caller, services.MyBookingsQuery{
			Status:      status,
			Search:      strings.TrimSpace(c.Query("search")),
			PageRequest: pr,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(bookings, pagination, "Your bookings fetched successfully"))
	}
}

func CancelBooking(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid Booking ID")
		if !ok {
			return
		}

		booking, err := bs.CancelBooking(c.Request.Context(), caller, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(booking, "Booking cancelled successfully"))
	}
}
